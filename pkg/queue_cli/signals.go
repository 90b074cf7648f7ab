// pkg/queue_cli/signals.go
//
// Signal handling so a foreground serve returns control to the terminal
// cleanly on Ctrl-C or service stop.

package queue_cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CleanupFunc performs one shutdown step.
type CleanupFunc func() error

// SignalHandler cancels its context on SIGINT/SIGTERM and runs registered
// cleanup functions in reverse order.
type SignalHandler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	doneChan chan struct{}

	mu           sync.Mutex
	cleanupFuncs []CleanupFunc
}

// NewSignalHandler starts listening for interrupt signals immediately.
func NewSignalHandler(ctx context.Context) *SignalHandler {
	ctx, cancel := context.WithCancel(ctx)

	handler := &SignalHandler{
		ctx:      ctx,
		cancel:   cancel,
		sigChan:  make(chan os.Signal, 1),
		doneChan: make(chan struct{}),
	}

	signal.Notify(handler.sigChan, os.Interrupt, syscall.SIGTERM)
	go handler.handleSignals()

	return handler
}

// RegisterCleanup adds a cleanup function, called LIFO on shutdown.
// Safe to call while the signal goroutine is already listening.
func (h *SignalHandler) RegisterCleanup(cleanup CleanupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFuncs = append(h.cleanupFuncs, cleanup)
}

// Context returns the cancellable context; operations should watch it.
func (h *SignalHandler) Context() context.Context {
	return h.ctx
}

// Done is closed once cleanup has finished.
func (h *SignalHandler) Done() <-chan struct{} {
	return h.doneChan
}

// Stop triggers shutdown without a signal.
func (h *SignalHandler) Stop() {
	h.cancel()
}

func (h *SignalHandler) handleSignals() {
	logger := otelzap.Ctx(h.ctx)

	select {
	case sig := <-h.sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-h.ctx.Done():
	}

	h.cancel()

	h.mu.Lock()
	cleanups := make([]CleanupFunc, len(h.cleanupFuncs))
	copy(cleanups, h.cleanupFuncs)
	h.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			logger.Warn("Cleanup step failed", zap.Error(err))
		}
	}

	signal.Stop(h.sigChan)
	close(h.doneChan)
}
