// pkg/service_installation/manager.go

package service_installation

import (
	"os"
	"runtime"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/privilege_check"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// Backend is the per-platform service registry driver.
type Backend interface {
	Install(rc *queue_io.RuntimeContext, opts InstallOptions, result *InstallationResult) error
	Remove(rc *queue_io.RuntimeContext, name string) error
	Start(rc *queue_io.RuntimeContext, name string) error
	Stop(rc *queue_io.RuntimeContext, name string) error
	Status(rc *queue_io.RuntimeContext, name string) (*ServiceStatus, error)
}

// ServiceManager selects a backend and runs lifecycle operations with
// precondition checks and step recording.
type ServiceManager struct {
	backend     Backend
	backendName string
}

// NewServiceManager picks NSSM on Windows and the init-system backend
// everywhere else.
func NewServiceManager(nssmPath string) *ServiceManager {
	if runtime.GOOS == "windows" {
		return &ServiceManager{backend: NewNSSMManager(nssmPath), backendName: "nssm"}
	}
	return &ServiceManager{backend: NewPortableManager(), backendName: "portable"}
}

// NewServiceManagerWithBackend is for tests and callers that force a backend.
func NewServiceManagerWithBackend(backend Backend, name string) *ServiceManager {
	return &ServiceManager{backend: backend, backendName: name}
}

// Backend reports which driver this manager dispatches to.
func (sm *ServiceManager) Backend() string { return sm.backendName }

// Install runs preconditions, prepares the log directory, and registers
// the service. All preconditions pass before the first mutation.
func (sm *ServiceManager) Install(rc *queue_io.RuntimeContext, opts InstallOptions) (*InstallationResult, error) {
	logger := otelzap.Ctx(rc.Ctx)
	start := time.Now()

	result := &InstallationResult{
		Service:   opts.Name,
		Backend:   sm.backendName,
		Timestamp: start,
	}

	logger.Info("Installing service",
		zap.String("service", opts.Name),
		zap.String("backend", sm.backendName),
		zap.Bool("dry_run", opts.DryRun))

	if err := sm.validate(opts); err != nil {
		return sm.fail(result, start, err)
	}
	if err := privilege_check.RequireElevated(rc); err != nil {
		return sm.fail(result, start, err)
	}
	if n, ok := sm.backend.(*NSSMManager); ok {
		if err := n.VerifyHelper(rc); err != nil {
			return sm.fail(result, start, err)
		}
	}

	if opts.LogDir != "" && !opts.DryRun {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return sm.fail(result, start, cerr.Wrapf(err, "create log directory %s", opts.LogDir))
		}
	}

	if err := sm.backend.Install(rc, opts, result); err != nil {
		return sm.fail(result, start, err)
	}

	result.Success = true
	result.Duration = time.Since(start)
	logger.Info("Service installed",
		zap.String("service", opts.Name),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Remove deregisters the service.
func (sm *ServiceManager) Remove(rc *queue_io.RuntimeContext, name string) error {
	if err := privilege_check.RequireElevated(rc); err != nil {
		return err
	}
	return sm.backend.Remove(rc, name)
}

// Start starts the service.
func (sm *ServiceManager) Start(rc *queue_io.RuntimeContext, name string) error {
	if err := privilege_check.RequireElevated(rc); err != nil {
		return err
	}
	return sm.backend.Start(rc, name)
}

// Stop stops the service.
func (sm *ServiceManager) Stop(rc *queue_io.RuntimeContext, name string) error {
	if err := privilege_check.RequireElevated(rc); err != nil {
		return err
	}
	return sm.backend.Stop(rc, name)
}

// Status reports the current service state.
func (sm *ServiceManager) Status(rc *queue_io.RuntimeContext, name string) (*ServiceStatus, error) {
	return sm.backend.Status(rc, name)
}

func (sm *ServiceManager) validate(opts InstallOptions) error {
	if opts.Name == "" {
		return cerr.New("service name is required")
	}
	if opts.ExecutablePath == "" {
		return cerr.New("executable path is required")
	}
	if _, err := os.Stat(opts.ExecutablePath); err != nil {
		return cerr.Wrapf(err, "service executable %s", opts.ExecutablePath)
	}
	return nil
}

func (sm *ServiceManager) fail(result *InstallationResult, start time.Time, err error) (*InstallationResult, error) {
	result.Success = false
	result.Error = err.Error()
	result.Duration = time.Since(start)
	return result, err
}
