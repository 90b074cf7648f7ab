// pkg/service_installation/types.go
package service_installation

import "time"

// InstallOptions carries everything needed to register The Queue with the
// host service manager. Values come from config; the executable defaults
// to the running binary.
type InstallOptions struct {
	Name        string
	DisplayName string
	Description string

	// ExecutablePath plus Arguments form the service command line.
	ExecutablePath string
	Arguments      []string
	WorkingDir     string

	// LogDir receives stdout/stderr redirection files. Created if absent.
	LogDir string

	// NSSMPath is the fixed helper-executable path on Windows.
	NSSMPath string

	DryRun bool
}

// InstallationStep records one unit of installer work for operator output.
type InstallationStep struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// InstallationResult is the outcome of a full install or remove run.
type InstallationResult struct {
	Service   string             `json:"service"`
	Backend   string             `json:"backend"`
	Success   bool               `json:"success"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Duration  time.Duration      `json:"duration"`
	Steps     []InstallationStep `json:"steps"`
}

// ServiceStatus reports the registered entry's state.
type ServiceStatus struct {
	Name    string `json:"name"`
	Backend string `json:"backend"`
	State   string `json:"state"`
	Raw     string `json:"raw,omitempty"`
}

const (
	StepPending   = "pending"
	StepRunning   = "running"
	StepCompleted = "completed"
	StepFailed    = "failed"
)
