// Package service manages The Queue as a system service: NSSM drives
// the Windows service registry, the native init system everywhere else.
package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/config"
	"github.com/jdsquared/thequeue/pkg/queue_cli"
	"github.com/jdsquared/thequeue/pkg/queue_io"
	"github.com/jdsquared/thequeue/pkg/service_installation"
)

var installDryRun bool

// ServiceCmd groups the service lifecycle commands.
var ServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Install and control The Queue system service",
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register The Queue as an auto-start service",
	Long: `Register this binary as a service that starts at boot and appends its
output to the service log directory. Requires an elevated session; on
Windows the NSSM helper must already be installed (thequeue setup deps).`,
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}

		executable, err := os.Executable()
		if err != nil {
			return err
		}
		executable, err = filepath.EvalSymlinks(executable)
		if err != nil {
			return err
		}

		sm := service_installation.NewServiceManager(settings.Paths.NSSMPath)
		result, err := sm.Install(rc, service_installation.InstallOptions{
			Name:           settings.Service.Name,
			DisplayName:    settings.Service.DisplayName,
			Description:    settings.Service.Description,
			ExecutablePath: executable,
			Arguments:      []string{"serve"},
			WorkingDir:     settings.Paths.AppRoot,
			LogDir:         settings.Paths.LogDir,
			NSSMPath:       settings.Paths.NSSMPath,
			DryRun:         installDryRun,
		})
		if err != nil {
			return err
		}

		otelzap.Ctx(rc.Ctx).Info("Service install finished",
			zap.String("service", result.Service),
			zap.String("backend", result.Backend),
			zap.Int("steps", len(result.Steps)))
		fmt.Printf("Installed service %q (%s backend). Start it with: thequeue service start\n",
			result.Service, result.Backend)
		return nil
	}),
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Stop and deregister the service",
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		sm := service_installation.NewServiceManager(settings.Paths.NSSMPath)
		if err := sm.Remove(rc, settings.Service.Name); err != nil {
			return err
		}
		fmt.Printf("Removed service %q\n", settings.Service.Name)
		return nil
	}),
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the installed service",
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		sm := service_installation.NewServiceManager(settings.Paths.NSSMPath)
		if err := sm.Start(rc, settings.Service.Name); err != nil {
			return err
		}
		fmt.Printf("Started service %q\n", settings.Service.Name)
		return nil
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the installed service",
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		sm := service_installation.NewServiceManager(settings.Paths.NSSMPath)
		if err := sm.Stop(rc, settings.Service.Name); err != nil {
			return err
		}
		fmt.Printf("Stopped service %q\n", settings.Service.Name)
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the service state",
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		sm := service_installation.NewServiceManager(settings.Paths.NSSMPath)
		status, err := sm.Status(rc, settings.Service.Name)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (%s backend)\n", status.Name, status.State, status.Backend)
		return nil
	}),
}

func init() {
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false,
		"log the registration steps without touching the service registry")

	for _, subCmd := range []*cobra.Command{
		installCmd,
		removeCmd,
		startCmd,
		stopCmd,
		statusCmd,
	} {
		ServiceCmd.AddCommand(subCmd)
	}
}
