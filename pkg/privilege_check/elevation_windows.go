//go:build windows

// pkg/privilege_check/elevation_windows.go
package privilege_check

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// isElevated asks the process token whether UAC elevation is in effect.
func isElevated(rc *queue_io.RuntimeContext) bool {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token); err != nil {
		otelzap.Ctx(rc.Ctx).Warn("Failed to open process token", zap.Error(err))
		return false
	}
	defer token.Close()
	return token.IsElevated()
}
