// pkg/queue_io/context.go

package queue_io

import (
	"context"
	"os"
	"os/user"
	"runtime"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/telemetry"
)

// RuntimeContext carries everything a command handler needs: a traced
// context, a scoped logger, and the command identity for lifecycle logs.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Span       trace.Span
	Timestamp  time.Time
	Command    string
	Component  string
	Attributes map[string]string
}

// NewContext sets up tracing and a component-scoped logger for one command run.
func NewContext(ctx context.Context, cmdName string) *RuntimeContext {
	ctx, span := telemetry.Start(ctx, cmdName)
	traceID := span.SpanContext().TraceID().String()

	comp, action := resolveCallContext(3)
	logger := zap.L().With(
		zap.String("component", comp),
		zap.String("action", action),
		zap.String("trace_id", traceID),
	).Named(comp)

	logEnv(logger)

	return &RuntimeContext{
		Ctx:        ctx,
		Span:       span,
		Log:        logger,
		Timestamp:  time.Now(),
		Command:    cmdName,
		Component:  comp,
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome and closes the span. Use with defer.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	duration := time.Since(rc.Timestamp)
	if *errPtr == nil {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(*errPtr))
	}
}

// resolveCallContext extracts the caller's package and function names.
func resolveCallContext(skip int) (component, action string) {
	component = "unknown"
	action = "unknown"

	pc, file, _, ok := runtime.Caller(skip)
	if !ok {
		return component, action
	}

	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		component = parts[len(parts)-2]
	}

	funcObj := runtime.FuncForPC(pc)
	if funcObj == nil {
		return component, action
	}

	funcParts := strings.Split(funcObj.Name(), ".")
	if len(funcParts) > 0 {
		action = funcParts[len(funcParts)-1]
	}

	return component, action
}

func logEnv(logger *zap.Logger) {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	hostname, _ := os.Hostname()
	logger.Debug("Runtime execution context",
		zap.String("user", username),
		zap.String("hostname", hostname),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH),
		zap.Int("pid", os.Getpid()))
}
