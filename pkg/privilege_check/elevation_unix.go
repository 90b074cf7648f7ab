//go:build !windows

// pkg/privilege_check/elevation_unix.go
package privilege_check

import (
	"os"

	"github.com/jdsquared/thequeue/pkg/queue_io"
)

func isElevated(rc *queue_io.RuntimeContext) bool {
	return os.Geteuid() == 0
}
