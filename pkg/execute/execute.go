// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/telemetry"
)

// Options configures a single command execution.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
	Retries int
	Delay   time.Duration
	DryRun  bool
	Capture bool
	Logger  *zap.Logger
}

// DefaultLogger is used when Options.Logger is nil. Tests may replace it.
var DefaultLogger *zap.Logger

// Run executes a command with structured logging, a context deadline, and
// optional retries. Shell execution is deliberately unsupported; callers
// pass argv directly.
func Run(ctx context.Context, opts Options) (string, error) {
	cmdStr := opts.Command + " " + strings.Join(opts.Args, " ")

	logger := opts.Logger
	if logger == nil {
		logger = DefaultLogger
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))
	defer cancel()

	runCtx, span := telemetry.Start(runCtx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.String("args", strings.Join(opts.Args, " ")),
	)

	if opts.DryRun {
		logger.Info("Dry run mode, command not executed", zap.String("command", cmdStr))
		return "", nil
	}

	logger.Info("Starting execution", zap.String("command", cmdStr))

	var output string
	var err error

	attempts := maxInt(1, opts.Retries)
	for i := 1; i <= attempts; i++ {
		cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
		if opts.Dir != "" {
			cmd.Dir = opts.Dir
		}
		if len(opts.Env) > 0 {
			cmd.Env = opts.Env
		}

		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf

		err = cmd.Run()
		output = buf.String()

		if err == nil {
			logger.Info("Execution succeeded", zap.String("command", cmdStr))
			break
		}

		summary := queue_err.ExtractSummary(runCtx, output, 2)
		span.RecordError(err)
		logger.Error("Execution failed", zap.Error(err),
			zap.Int("attempt", i),
			zap.String("command", cmdStr),
			zap.String("summary", summary),
		)

		if i < attempts {
			time.Sleep(opts.Delay)
		}
	}

	if err != nil {
		return output, cerr.Wrapf(err, "command failed after %d attempts", attempts)
	}

	if opts.Capture {
		return output, nil
	}
	return "", nil
}

// RunSimple executes a command with minimal options.
func RunSimple(ctx context.Context, cmd string, args ...string) error {
	_, err := Run(ctx, Options{Command: cmd, Args: args})
	return err
}

// LookPath reports whether a binary is resolvable on PATH.
func LookPath(binary string) error {
	_, err := exec.LookPath(binary)
	return err
}

func defaultTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return 30 * time.Second
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
