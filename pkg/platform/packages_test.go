package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInstallInvocationWinget(t *testing.T) {
	t.Parallel()

	inv := BuildInstallInvocation(ManagerWinget)
	require.NotNil(t, inv)
	assert.Equal(t, "winget", inv.Command)

	// The installer must request exactly the prerequisite set.
	var requested []string
	for i, arg := range inv.Args {
		if arg == "--id" && i+1 < len(inv.Args) {
			requested = append(requested, inv.Args[i+1])
		}
	}
	assert.ElementsMatch(t, PrerequisitePackages[ManagerWinget], requested)
}

func TestBuildInstallInvocationChoco(t *testing.T) {
	t.Parallel()

	inv := BuildInstallInvocation(ManagerChoco)
	require.NotNil(t, inv)
	assert.Equal(t, "choco", inv.Command)
	assert.Equal(t, "install", inv.Args[0])
	assert.ElementsMatch(t, PrerequisitePackages[ManagerChoco], inv.Args[2:])
}

func TestBuildInstallInvocationEmptyPlatforms(t *testing.T) {
	t.Parallel()

	// Hosts with a native service manager have nothing to install.
	assert.Nil(t, BuildInstallInvocation(ManagerApt))
	assert.Nil(t, BuildInstallInvocation(ManagerDnf))
	assert.Nil(t, BuildInstallInvocation(ManagerBrew))
	assert.Nil(t, BuildInstallInvocation(ManagerNone))
}
