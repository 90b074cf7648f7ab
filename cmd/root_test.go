/* cmd/root_test.go */

package cmd

import (
	"context"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/jdsquared/thequeue/pkg/queue_err"
)

// Precondition failures such as a missing elevation or a missing NSSM
// binary surface as expected user errors. They still have to fail the
// process so `service install` scripts can detect the abort.
func TestExitCode(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(cerr.New("backend unavailable")))

	userErr := queue_err.NewExpectedError(ctx, cerr.New("run this from an elevated session"))
	assert.True(t, queue_err.IsExpectedUserError(userErr))
	assert.Equal(t, 1, exitCode(userErr))
}
