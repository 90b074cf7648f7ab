/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/cmd/serve"
	"github.com/jdsquared/thequeue/cmd/service"
	"github.com/jdsquared/thequeue/cmd/setup"
	"github.com/jdsquared/thequeue/pkg/logger"
	"github.com/jdsquared/thequeue/pkg/queue_cli"
	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// Version is stamped by the build.
var Version = "dev"

// RootCmd is the base command for thequeue.
var RootCmd = &cobra.Command{
	Use:   "thequeue",
	Short: "Shop floor work queue for Epicor",
	Long: `The Queue serves ready-to-run job lists per work cell from the Epicor
ERP database and records labor through the Epicor REST API. It also
installs itself as a Windows service and manages its own prerequisites.`,
	RunE: queue_cli.Wrap(func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	for _, subCmd := range []*cobra.Command{
		serve.ServeCmd,
		service.ServiceCmd,
		setup.SetupCmd,
		versionCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command. Expected user errors
// log at warn instead of error, but any failed run exits non-zero so
// installers and scripts can detect it.
func Execute() {
	defer func() {
		_ = logger.Sync()
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if queue_err.IsExpectedUserError(err) {
			logger.L().Warn("CLI completed with user error", zap.Error(err))
		} else {
			logger.L().Error("CLI failed", zap.Error(err))
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
