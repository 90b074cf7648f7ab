// pkg/queue_cli/signals_test.go

package queue_cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanupRunsInReverseOrder(t *testing.T) {
	h := NewSignalHandler(context.Background())

	var order []string
	h.RegisterCleanup(func() error {
		order = append(order, "first")
		return nil
	})
	h.RegisterCleanup(func() error {
		order = append(order, "second")
		return nil
	})

	h.Stop()
	<-h.Done()

	assert.Equal(t, []string{"second", "first"}, order)
}

func TestRegisterCleanupDuringShutdown(t *testing.T) {
	h := NewSignalHandler(context.Background())

	registered := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.RegisterCleanup(func() error { return nil })
		}
		close(registered)
	}()

	h.Stop()
	<-registered
	<-h.Done()
}
