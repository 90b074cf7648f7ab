package preflight

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunChecksRequiredFailure(t *testing.T) {
	checks := []Check{
		{Name: "ok", Check: func(context.Context) error { return nil }, Required: true},
		{Name: "broken", Check: func(context.Context) error { return cerr.New("boom") }, Required: true},
	}

	results, err := RunChecks(context.Background(), checks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 required check(s) failed")
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
}

func TestRunChecksOptionalFailureIsWarning(t *testing.T) {
	checks := []Check{
		{Name: "flaky", Check: func(context.Context) error { return cerr.New("down") }, Required: false},
	}

	results, err := RunChecks(context.Background(), checks)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "down", results[0].Warning)
}

func TestCheckPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	err = CheckPort(port)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")
}

func TestCheckLogDirWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, CheckLogDirWritable(dir)(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be cleaned up")
}

func TestCheckWorkcellsFile(t *testing.T) {
	dir := t.TempDir()

	err := CheckWorkcellsFile(filepath.Join(dir, "workcells.json"))(context.Background())
	require.Error(t, err)

	path := filepath.Join(dir, "workcells.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	require.NoError(t, CheckWorkcellsFile(path)(context.Background()))

	err = CheckWorkcellsFile(dir)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestCheckEpicorAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	// Unauthorized still proves the endpoint is up.
	require.NoError(t, CheckEpicorAPI(srv.URL, false)(context.Background()))

	srv.Close()
	require.Error(t, CheckEpicorAPI(srv.URL, false)(context.Background()))

	err := CheckEpicorAPI("", false)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
