package service_installation

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

func testOptions() InstallOptions {
	return InstallOptions{
		Name:           "TheQueue",
		DisplayName:    "The Queue",
		Description:    "Shop floor work queue for Epicor",
		ExecutablePath: `C:\TheQueue\thequeue.exe`,
		Arguments:      []string{"serve"},
		WorkingDir:     `C:\TheQueue`,
		LogDir:         `C:\TheQueue\logs`,
	}
}

func TestBuildInstallCommands(t *testing.T) {
	m := NewNSSMManager(`C:\Program Files\nssm\nssm.exe`)
	opts := testOptions()

	commands := m.BuildInstallCommands(opts)
	require.Len(t, commands, 9)

	assert.Equal(t,
		[]string{"install", "TheQueue", `C:\TheQueue\thequeue.exe`, "serve"},
		commands[0])

	// Every subsequent command is a "set" on the same service.
	props := map[string]string{}
	for _, args := range commands[1:] {
		require.Len(t, args, 4)
		assert.Equal(t, "set", args[0])
		assert.Equal(t, "TheQueue", args[1])
		props[args[2]] = args[3]
	}

	assert.Equal(t, map[string]string{
		"AppDirectory":                 `C:\TheQueue`,
		"DisplayName":                  "The Queue",
		"Description":                  "Shop floor work queue for Epicor",
		"Start":                        "SERVICE_AUTO_START",
		"AppStdout":                    filepath.Join(`C:\TheQueue\logs`, "service.log"),
		"AppStderr":                    filepath.Join(`C:\TheQueue\logs`, "service-error.log"),
		"AppStdoutCreationDisposition": "4",
		"AppStderrCreationDisposition": "4",
	}, props)
}

func TestInstallMissingHelperMutatesNothing(t *testing.T) {
	m := NewNSSMManager(filepath.Join(t.TempDir(), "nssm.exe"))

	var invocations [][]string
	m.Run = func(rc *queue_io.RuntimeContext, command string, args ...string) (string, error) {
		invocations = append(invocations, append([]string{command}, args...))
		return "", nil
	}

	rc := queue_io.NewContext(context.Background(), "test")
	result := &InstallationResult{Service: "TheQueue"}

	err := m.Install(rc, testOptions(), result)
	require.Error(t, err)
	assert.True(t, queue_err.IsExpectedUserError(err))
	assert.Contains(t, err.Error(), "NSSM was not found")
	assert.Empty(t, invocations, "no registry mutation may happen when the helper is missing")
	assert.Empty(t, result.Steps)
}

func TestInstallRunsEveryCommandInOrder(t *testing.T) {
	helper := filepath.Join(t.TempDir(), "nssm.exe")
	writeFile(t, helper)

	m := NewNSSMManager(helper)
	var invocations [][]string
	m.Run = func(rc *queue_io.RuntimeContext, command string, args ...string) (string, error) {
		assert.Equal(t, helper, command)
		invocations = append(invocations, args)
		return "", nil
	}

	rc := queue_io.NewContext(context.Background(), "test")
	result := &InstallationResult{Service: "TheQueue"}
	opts := testOptions()

	require.NoError(t, m.Install(rc, opts, result))
	assert.Equal(t, m.BuildInstallCommands(opts), invocations)

	require.Len(t, result.Steps, 9)
	for _, step := range result.Steps {
		assert.Equal(t, StepCompleted, step.Status)
	}
}

func TestInstallDryRunSkipsExecution(t *testing.T) {
	helper := filepath.Join(t.TempDir(), "nssm.exe")
	writeFile(t, helper)

	m := NewNSSMManager(helper)
	m.Run = func(rc *queue_io.RuntimeContext, command string, args ...string) (string, error) {
		t.Fatal("dry run must not invoke the helper")
		return "", nil
	}

	rc := queue_io.NewContext(context.Background(), "test")
	result := &InstallationResult{Service: "TheQueue"}
	opts := testOptions()
	opts.DryRun = true

	require.NoError(t, m.Install(rc, opts, result))
	assert.Len(t, result.Steps, 9)
}

func TestStatusParsesState(t *testing.T) {
	helper := filepath.Join(t.TempDir(), "nssm.exe")
	writeFile(t, helper)

	cases := []struct {
		output string
		want   string
	}{
		{"SERVICE_RUNNING\r\n", "running"},
		{"SERVICE_STOPPED\r\n", "stopped"},
		{"SERVICE_PAUSED\r\n", "paused"},
		{"garbage", "unknown"},
	}

	for _, tc := range cases {
		m := NewNSSMManager(helper)
		m.Run = func(rc *queue_io.RuntimeContext, command string, args ...string) (string, error) {
			assert.Equal(t, []string{"status", "TheQueue"}, args)
			return tc.output, nil
		}

		rc := queue_io.NewContext(context.Background(), "test")
		status, err := m.Status(rc, "TheQueue")
		require.NoError(t, err)
		assert.Equal(t, tc.want, status.State)
		assert.Equal(t, strings.TrimSpace(tc.output), status.Raw)
	}
}
