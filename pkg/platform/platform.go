// pkg/platform/platform.go
package platform

import (
	"runtime"

	"github.com/jdsquared/thequeue/pkg/execute"
)

// PackageManager identifies the system package installer used for
// prerequisite installation.
type PackageManager string

const (
	ManagerWinget PackageManager = "winget"
	ManagerChoco  PackageManager = "choco"
	ManagerApt    PackageManager = "apt-get"
	ManagerDnf    PackageManager = "dnf"
	ManagerBrew   PackageManager = "brew"
	ManagerNone   PackageManager = ""
)

// GetOSPlatform normalizes runtime.GOOS into the three platforms we deploy on.
func GetOSPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "macos"
	default:
		return "linux"
	}
}

// DetectPackageManager returns the first available installer for this host.
func DetectPackageManager() PackageManager {
	var candidates []PackageManager
	switch GetOSPlatform() {
	case "windows":
		candidates = []PackageManager{ManagerWinget, ManagerChoco}
	case "macos":
		candidates = []PackageManager{ManagerBrew}
	default:
		candidates = []PackageManager{ManagerApt, ManagerDnf}
	}

	for _, mgr := range candidates {
		if execute.LookPath(string(mgr)) == nil {
			return mgr
		}
	}
	return ManagerNone
}
