package service_installation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/queue_io"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o755))
}

type recordingBackend struct {
	installed []InstallOptions
	removed   []string
	started   []string
	stopped   []string
	fail      error
}

func (b *recordingBackend) Install(rc *queue_io.RuntimeContext, opts InstallOptions, result *InstallationResult) error {
	if b.fail != nil {
		return b.fail
	}
	b.installed = append(b.installed, opts)
	return nil
}

func (b *recordingBackend) Remove(rc *queue_io.RuntimeContext, name string) error {
	b.removed = append(b.removed, name)
	return nil
}

func (b *recordingBackend) Start(rc *queue_io.RuntimeContext, name string) error {
	b.started = append(b.started, name)
	return nil
}

func (b *recordingBackend) Stop(rc *queue_io.RuntimeContext, name string) error {
	b.stopped = append(b.stopped, name)
	return nil
}

func (b *recordingBackend) Status(rc *queue_io.RuntimeContext, name string) (*ServiceStatus, error) {
	return &ServiceStatus{Name: name, Backend: "recording", State: "running"}, nil
}

func skipUnlessElevated(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("service installation requires an elevated session")
	}
}

func skipIfElevated(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("elevation check cannot fail in an elevated session")
	}
}

func TestInstallWithoutElevationMutatesNothing(t *testing.T) {
	skipIfElevated(t)

	dir := t.TempDir()
	exe := filepath.Join(dir, "thequeue")
	writeFile(t, exe)

	backend := &recordingBackend{}
	sm := NewServiceManagerWithBackend(backend, "recording")
	rc := queue_io.NewContext(context.Background(), "test")

	opts := testOptions()
	opts.ExecutablePath = exe
	opts.WorkingDir = dir
	opts.LogDir = filepath.Join(dir, "logs")

	result, err := sm.Install(rc, opts)
	require.Error(t, err)
	assert.True(t, queue_err.IsExpectedUserError(err))
	assert.False(t, result.Success)
	assert.Empty(t, backend.installed, "backend must not run without elevation")
	assert.NoDirExists(t, opts.LogDir, "log dir must not be created without elevation")
}

func TestInstallValidatesBeforeBackend(t *testing.T) {
	skipUnlessElevated(t)

	backend := &recordingBackend{}
	sm := NewServiceManagerWithBackend(backend, "recording")
	rc := queue_io.NewContext(context.Background(), "test")

	opts := testOptions()
	opts.ExecutablePath = filepath.Join(t.TempDir(), "missing.exe")
	opts.LogDir = ""

	result, err := sm.Install(rc, opts)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, backend.installed, "backend must not run when validation fails")
}

func TestInstallDispatchesToBackend(t *testing.T) {
	skipUnlessElevated(t)

	dir := t.TempDir()
	exe := filepath.Join(dir, "thequeue")
	writeFile(t, exe)

	backend := &recordingBackend{}
	sm := NewServiceManagerWithBackend(backend, "recording")
	rc := queue_io.NewContext(context.Background(), "test")

	opts := testOptions()
	opts.ExecutablePath = exe
	opts.WorkingDir = dir
	opts.LogDir = filepath.Join(dir, "logs")

	result, err := sm.Install(rc, opts)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "recording", result.Backend)
	require.Len(t, backend.installed, 1)

	info, err := os.Stat(opts.LogDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestInstallReportsBackendFailure(t *testing.T) {
	skipUnlessElevated(t)

	dir := t.TempDir()
	exe := filepath.Join(dir, "thequeue")
	writeFile(t, exe)

	backend := &recordingBackend{fail: cerr.New("registry unavailable")}
	sm := NewServiceManagerWithBackend(backend, "recording")
	rc := queue_io.NewContext(context.Background(), "test")

	opts := testOptions()
	opts.ExecutablePath = exe
	opts.WorkingDir = dir
	opts.LogDir = filepath.Join(dir, "logs")

	result, err := sm.Install(rc, opts)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "registry unavailable")
}

func TestLifecycleDispatch(t *testing.T) {
	skipUnlessElevated(t)

	backend := &recordingBackend{}
	sm := NewServiceManagerWithBackend(backend, "recording")
	rc := queue_io.NewContext(context.Background(), "test")

	require.NoError(t, sm.Start(rc, "TheQueue"))
	require.NoError(t, sm.Stop(rc, "TheQueue"))
	require.NoError(t, sm.Remove(rc, "TheQueue"))

	assert.Equal(t, []string{"TheQueue"}, backend.started)
	assert.Equal(t, []string{"TheQueue"}, backend.stopped)
	assert.Equal(t, []string{"TheQueue"}, backend.removed)

	status, err := sm.Status(rc, "TheQueue")
	require.NoError(t, err)
	assert.Equal(t, "running", status.State)
}
