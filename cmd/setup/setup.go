// Package setup prepares a machine to run The Queue: prerequisite
// packages and environment checks.
package setup

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/config"
	"github.com/jdsquared/thequeue/pkg/platform"
	"github.com/jdsquared/thequeue/pkg/preflight"
	"github.com/jdsquared/thequeue/pkg/queue_cli"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

var depsDryRun bool

// SetupCmd groups the machine preparation commands.
var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare this machine to run The Queue",
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Install the prerequisite packages",
	Long: `Install exactly the packages The Queue needs through the platform's
package manager. On Windows that is the NSSM service helper; other
platforms have no prerequisites.`,
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return platform.InstallPrerequisites(rc, depsDryRun)
	}),
}

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check the environment without changing anything",
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}

		results, err := preflight.RunChecks(rc.Ctx, preflight.ServerChecks(settings))
		for _, result := range results {
			mark := "ok"
			detail := ""
			switch {
			case !result.Passed && result.Warning != "":
				mark = "warn"
				detail = " " + result.Warning
			case !result.Passed:
				mark = "FAIL"
				if result.Error != nil {
					detail = " " + result.Error.Error()
				}
			}
			fmt.Printf("[%s] %s%s\n", mark, result.Name, detail)
		}
		if err != nil {
			otelzap.Ctx(rc.Ctx).Error("Preflight failed", zap.Error(err))
			return err
		}
		return nil
	}),
}

func init() {
	depsCmd.Flags().BoolVar(&depsDryRun, "dry-run", false,
		"show what would be installed without installing")

	SetupCmd.AddCommand(depsCmd)
	SetupCmd.AddCommand(preflightCmd)
}
