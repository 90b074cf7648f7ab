// pkg/privilege_check/privileges.go
package privilege_check

import (
	"os/user"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

// PrivilegeLevel describes how much the current process can do.
type PrivilegeLevel string

const (
	PrivilegeLevelElevated PrivilegeLevel = "elevated"
	PrivilegeLevelRegular  PrivilegeLevel = "regular"
)

// PrivilegeCheck is the result of probing the current process.
type PrivilegeCheck struct {
	Username   string
	Level      PrivilegeLevel
	IsElevated bool
	Timestamp  time.Time
	Error      string
}

// ErrNotElevated is the operator-facing message for an aborted privileged
// operation; service install prints it verbatim before exiting non-zero.
const ErrNotElevated = "This operation must be run from an elevated (Administrator) session."

// CheckPrivileges probes the current process's privilege level.
func CheckPrivileges(rc *queue_io.RuntimeContext) (*PrivilegeCheck, error) {
	logger := otelzap.Ctx(rc.Ctx)

	check := &PrivilegeCheck{
		Timestamp: time.Now(),
	}

	currentUser, err := user.Current()
	if err != nil {
		check.Error = err.Error()
		logger.Error("Failed to get current user info", zap.Error(err))
		return check, err
	}
	check.Username = currentUser.Username

	check.IsElevated = isElevated(rc)
	if check.IsElevated {
		check.Level = PrivilegeLevelElevated
	} else {
		check.Level = PrivilegeLevelRegular
	}

	logger.Debug("Privilege check completed",
		zap.String("username", check.Username),
		zap.String("level", string(check.Level)),
		zap.Bool("is_elevated", check.IsElevated))

	return check, nil
}

// RequireElevated returns an expected user error when the process lacks
// administrator rights. Callers abort before touching the service registry.
func RequireElevated(rc *queue_io.RuntimeContext) error {
	check, err := CheckPrivileges(rc)
	if err != nil {
		return err
	}
	if !check.IsElevated {
		otelzap.Ctx(rc.Ctx).Warn("Privilege check failed",
			zap.String("username", check.Username))
		return queue_err.NewExpectedErrorf(rc.Ctx, "%s", ErrNotElevated)
	}
	return nil
}
