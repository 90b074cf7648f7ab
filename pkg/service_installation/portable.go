// pkg/service_installation/portable.go
//
// Portable backend using kardianos/service for platforms without NSSM.

package service_installation

import (
	"strings"
	"time"

	"github.com/kardianos/service"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// PortableManager registers the service with the native init system
// (systemd, launchd, SCM) through kardianos/service.
type PortableManager struct{}

// NewPortableManager builds the portable backend.
func NewPortableManager() *PortableManager {
	return &PortableManager{}
}

// noopProgram satisfies service.Interface for control operations only.
// The service process runs the binary with its own arguments, so the
// callbacks are never invoked from here.
type noopProgram struct{}

func (noopProgram) Start(service.Service) error { return nil }
func (noopProgram) Stop(service.Service) error  { return nil }

func (m *PortableManager) build(opts InstallOptions) (service.Service, error) {
	cfg := &service.Config{
		Name:             opts.Name,
		DisplayName:      opts.DisplayName,
		Description:      opts.Description,
		Executable:       opts.ExecutablePath,
		Arguments:        opts.Arguments,
		WorkingDirectory: opts.WorkingDir,
	}
	return service.New(noopProgram{}, cfg)
}

func (m *PortableManager) buildByName(name string) (service.Service, error) {
	return service.New(noopProgram{}, &service.Config{Name: name})
}

// Install registers the service with the init system.
func (m *PortableManager) Install(rc *queue_io.RuntimeContext, opts InstallOptions, result *InstallationResult) error {
	logger := otelzap.Ctx(rc.Ctx)

	step := InstallationStep{
		Name:        "register service",
		Description: "register " + opts.Name + " with the init system",
		Status:      StepRunning,
	}
	stepStart := time.Now()

	svc, err := m.build(opts)
	if err == nil && !opts.DryRun {
		err = svc.Install()
	}
	step.Duration = time.Since(stepStart)
	if err != nil {
		step.Status = StepFailed
		step.Error = err.Error()
		result.Steps = append(result.Steps, step)
		return err
	}
	step.Status = StepCompleted
	result.Steps = append(result.Steps, step)

	logger.Info("Service registered with init system",
		zap.String("service", opts.Name),
		zap.String("platform", service.Platform()))
	return nil
}

// Remove deregisters the service, stopping it first.
func (m *PortableManager) Remove(rc *queue_io.RuntimeContext, name string) error {
	svc, err := m.buildByName(name)
	if err != nil {
		return err
	}
	if err := svc.Stop(); err != nil {
		otelzap.Ctx(rc.Ctx).Debug("Service stop before removal failed", zap.Error(err))
	}
	return svc.Uninstall()
}

// Start starts the registered service.
func (m *PortableManager) Start(rc *queue_io.RuntimeContext, name string) error {
	svc, err := m.buildByName(name)
	if err != nil {
		return err
	}
	return svc.Start()
}

// Stop stops the registered service.
func (m *PortableManager) Stop(rc *queue_io.RuntimeContext, name string) error {
	svc, err := m.buildByName(name)
	if err != nil {
		return err
	}
	return svc.Stop()
}

// Status reports the service state from the init system.
func (m *PortableManager) Status(rc *queue_io.RuntimeContext, name string) (*ServiceStatus, error) {
	svc, err := m.buildByName(name)
	if err != nil {
		return nil, err
	}
	status := &ServiceStatus{
		Name:    name,
		Backend: strings.ToLower(service.Platform()),
	}
	state, err := svc.Status()
	if err != nil {
		status.State = "unknown"
		return status, err
	}
	switch state {
	case service.StatusRunning:
		status.State = "running"
	case service.StatusStopped:
		status.State = "stopped"
	default:
		status.State = "unknown"
	}
	return status, nil
}
