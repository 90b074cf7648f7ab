// pkg/service_installation/nssm.go
//
// NSSM backend. Every service-registry mutation is one nssm invocation;
// precondition failures abort before the first mutation.

package service_installation

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/execute"
	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// ErrHelperMissing is the operator-facing message printed when the service
// manager helper is not at its configured path.
const ErrHelperMissing = "NSSM was not found at the configured path. Install it (thequeue setup deps) or set THEQUEUE_PATHS_NSSM_PATH."

// CommandRunner abstracts pkg/execute so tests can record invocations.
type CommandRunner func(rc *queue_io.RuntimeContext, command string, args ...string) (string, error)

// NSSMManager drives the NSSM helper executable.
type NSSMManager struct {
	Path string
	Run  CommandRunner
}

// NewNSSMManager builds a manager for the helper at the given fixed path.
func NewNSSMManager(path string) *NSSMManager {
	return &NSSMManager{
		Path: path,
		Run: func(rc *queue_io.RuntimeContext, command string, args ...string) (string, error) {
			return execute.Run(rc.Ctx, execute.Options{
				Command: command,
				Args:    args,
				Timeout: 30 * time.Second,
				Capture: true,
				Logger:  rc.Log,
			})
		},
	}
}

// VerifyHelper checks the helper executable exists before any mutation.
func (m *NSSMManager) VerifyHelper(rc *queue_io.RuntimeContext) error {
	if m.Path == "" {
		return queue_err.NewExpectedErrorf(rc.Ctx, "%s", ErrHelperMissing)
	}
	if _, err := os.Stat(m.Path); err != nil {
		otelzap.Ctx(rc.Ctx).Warn("Service manager helper missing",
			zap.String("nssm_path", m.Path), zap.Error(err))
		return queue_err.NewExpectedErrorf(rc.Ctx, "%s", ErrHelperMissing)
	}
	return nil
}

// BuildInstallCommands returns, in order, the exact nssm argument lists
// that register the service. Separated from execution so the literal
// property set is testable.
func (m *NSSMManager) BuildInstallCommands(opts InstallOptions) [][]string {
	stdoutLog := filepath.Join(opts.LogDir, "service.log")
	stderrLog := filepath.Join(opts.LogDir, "service-error.log")

	commands := [][]string{
		append([]string{"install", opts.Name, opts.ExecutablePath}, opts.Arguments...),
		{"set", opts.Name, "AppDirectory", opts.WorkingDir},
		{"set", opts.Name, "DisplayName", opts.DisplayName},
		{"set", opts.Name, "Description", opts.Description},
		{"set", opts.Name, "Start", "SERVICE_AUTO_START"},
		{"set", opts.Name, "AppStdout", stdoutLog},
		{"set", opts.Name, "AppStderr", stderrLog},
		// 4 = OPEN_ALWAYS: append to existing logs instead of truncating.
		{"set", opts.Name, "AppStdoutCreationDisposition", "4"},
		{"set", opts.Name, "AppStderrCreationDisposition", "4"},
	}
	return commands
}

// Install registers and configures the service entry.
func (m *NSSMManager) Install(rc *queue_io.RuntimeContext, opts InstallOptions, result *InstallationResult) error {
	logger := otelzap.Ctx(rc.Ctx)

	if err := m.VerifyHelper(rc); err != nil {
		return err
	}

	for _, args := range m.BuildInstallCommands(opts) {
		step := InstallationStep{
			Name:        "nssm " + strings.Join(args[:min(2, len(args))], " "),
			Description: strings.Join(args, " "),
			Status:      StepRunning,
		}
		stepStart := time.Now()

		if opts.DryRun {
			logger.Info("Dry run, skipping nssm invocation", zap.Strings("args", args))
			step.Status = StepCompleted
			step.Duration = time.Since(stepStart)
			result.Steps = append(result.Steps, step)
			continue
		}

		output, err := m.Run(rc, m.Path, args...)
		step.Duration = time.Since(stepStart)
		if err != nil {
			step.Status = StepFailed
			step.Error = queue_err.ExtractSummary(rc.Ctx, output, 2)
			result.Steps = append(result.Steps, step)
			return err
		}
		step.Status = StepCompleted
		result.Steps = append(result.Steps, step)
	}

	logger.Info("Service registered with NSSM",
		zap.String("service", opts.Name),
		zap.String("executable", opts.ExecutablePath))
	return nil
}

// Remove deregisters the service, stopping it first.
func (m *NSSMManager) Remove(rc *queue_io.RuntimeContext, name string) error {
	if err := m.VerifyHelper(rc); err != nil {
		return err
	}
	// Stop failures are fine when the service is not running.
	if _, err := m.Run(rc, m.Path, "stop", name); err != nil {
		otelzap.Ctx(rc.Ctx).Debug("Service stop before removal failed", zap.Error(err))
	}
	_, err := m.Run(rc, m.Path, "remove", name, "confirm")
	return err
}

// Start starts the registered service.
func (m *NSSMManager) Start(rc *queue_io.RuntimeContext, name string) error {
	if err := m.VerifyHelper(rc); err != nil {
		return err
	}
	_, err := m.Run(rc, m.Path, "start", name)
	return err
}

// Stop stops the registered service.
func (m *NSSMManager) Stop(rc *queue_io.RuntimeContext, name string) error {
	if err := m.VerifyHelper(rc); err != nil {
		return err
	}
	_, err := m.Run(rc, m.Path, "stop", name)
	return err
}

// Status reports the service state as NSSM sees it.
func (m *NSSMManager) Status(rc *queue_io.RuntimeContext, name string) (*ServiceStatus, error) {
	if err := m.VerifyHelper(rc); err != nil {
		return nil, err
	}
	output, err := m.Run(rc, m.Path, "status", name)
	status := &ServiceStatus{
		Name:    name,
		Backend: "nssm",
		Raw:     strings.TrimSpace(output),
	}
	if err != nil {
		status.State = "unknown"
		return status, err
	}
	switch {
	case strings.Contains(output, "SERVICE_RUNNING"):
		status.State = "running"
	case strings.Contains(output, "SERVICE_STOPPED"):
		status.State = "stopped"
	case strings.Contains(output, "SERVICE_PAUSED"):
		status.State = "paused"
	default:
		status.State = "unknown"
	}
	return status, nil
}
