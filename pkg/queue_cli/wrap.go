// pkg/queue_cli/wrap.go

package queue_cli

import (
	"context"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/logger"
	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// Wrap turns a RuntimeContext handler into a cobra RunE, adding panic
// recovery, lifecycle logging, and expected-error classification.
func Wrap(fn func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.L()

		rc := queue_io.NewContext(cmd.Context(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		err = fn(rc, cmd, args)
		if err != nil && !queue_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}

// WrapWithTimeout is like Wrap but bounds the handler with a deadline.
func WrapWithTimeout(timeout time.Duration, fn func(rc *queue_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.L()

		rc := queue_io.NewContext(cmd.Context(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		ctx, cancel := context.WithTimeout(rc.Ctx, timeout)
		defer cancel()
		rc.Ctx = ctx

		err = fn(rc, cmd, args)
		if err != nil && !queue_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}

// LogUserError reports an expected failure at warn level with its remedy.
func LogUserError(rc *queue_io.RuntimeContext, msg string, err error) {
	rc.Log.Warn(msg, zap.Error(err))
}
