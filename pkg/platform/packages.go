// pkg/platform/packages.go
package platform

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/execute"
	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// PrerequisitePackages is the fixed set of host packages the deployment
// needs, keyed by package manager. The installer requests exactly this
// set, nothing more.
var PrerequisitePackages = map[PackageManager][]string{
	ManagerWinget: {"NSSM.NSSM"},
	ManagerChoco:  {"nssm"},
	ManagerApt:    {},
	ManagerDnf:    {},
	ManagerBrew:   {},
}

// InstallInvocation is the exact command the dependency installer will run.
type InstallInvocation struct {
	Command string
	Args    []string
}

// BuildInstallInvocation assembles the installer command line for a manager.
// A nil result means this platform has no prerequisites to install.
func BuildInstallInvocation(mgr PackageManager) *InstallInvocation {
	packages, ok := PrerequisitePackages[mgr]
	if !ok || len(packages) == 0 {
		return nil
	}

	switch mgr {
	case ManagerWinget:
		args := []string{"install", "--accept-source-agreements", "--accept-package-agreements"}
		for _, pkg := range packages {
			args = append(args, "--id", pkg)
		}
		return &InstallInvocation{Command: "winget", Args: args}
	case ManagerChoco:
		return &InstallInvocation{Command: "choco", Args: append([]string{"install", "-y"}, packages...)}
	case ManagerApt:
		return &InstallInvocation{Command: "apt-get", Args: append([]string{"install", "-y"}, packages...)}
	case ManagerDnf:
		return &InstallInvocation{Command: "dnf", Args: append([]string{"install", "-y"}, packages...)}
	case ManagerBrew:
		return &InstallInvocation{Command: "brew", Args: append([]string{"install"}, packages...)}
	default:
		return nil
	}
}

// InstallPrerequisites runs the platform package manager over the fixed
// prerequisite list. Failures from the installer itself are surfaced, not
// retried.
func InstallPrerequisites(rc *queue_io.RuntimeContext, dryRun bool) error {
	logger := otelzap.Ctx(rc.Ctx)

	mgr := DetectPackageManager()
	if mgr == ManagerNone {
		return queue_err.NewExpectedErrorf(rc.Ctx, "no supported package manager found on this host")
	}

	invocation := BuildInstallInvocation(mgr)
	if invocation == nil {
		logger.Info("No prerequisite packages for this platform",
			zap.String("package_manager", string(mgr)))
		return nil
	}

	logger.Info("Installing prerequisite packages",
		zap.String("package_manager", string(mgr)),
		zap.Strings("packages", PrerequisitePackages[mgr]),
		zap.Bool("dry_run", dryRun))

	_, err := execute.Run(rc.Ctx, execute.Options{
		Command: invocation.Command,
		Args:    invocation.Args,
		Timeout: 10 * time.Minute,
		DryRun:  dryRun,
		Logger:  rc.Log,
	})
	return err
}
