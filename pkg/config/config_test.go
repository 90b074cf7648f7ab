package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", settings.Server.Host)
	assert.Equal(t, 5002, settings.Server.Port)
	assert.False(t, settings.Server.Debug)
	assert.Equal(t, "0.0.0.0:5002", settings.Server.Address())

	assert.Equal(t, "TheQueue", settings.Service.Name)
	assert.Equal(t, "The Queue", settings.Service.DisplayName)

	assert.Contains(t, settings.Database.DSN, "EPIC10LIVE")
	assert.NotEmpty(t, settings.Paths.AppRoot)
	assert.NotEmpty(t, settings.Paths.LogDir)
	assert.NotEmpty(t, settings.Paths.WorkcellsFile)

	if runtime.GOOS == "windows" {
		assert.Equal(t, `C:\nssm\win64\nssm.exe`, settings.Paths.NSSMPath)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("THEQUEUE_SERVER_PORT", "8080")
	t.Setenv("THEQUEUE_SERVER_DEBUG", "true")
	t.Setenv("THEQUEUE_EPICOR_BASE_URL", "https://epicor.example.com/api/v1")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, settings.Server.Port)
	assert.True(t, settings.Server.Debug)
	assert.Equal(t, "https://epicor.example.com/api/v1", settings.Epicor.BaseURL)
}

func TestLoadEnvCredentials(t *testing.T) {
	t.Setenv("THEQUEUE_EPICOR_API_KEY", "key-from-env")
	t.Setenv("THEQUEUE_EPICOR_USERNAME", "queueuser")
	t.Setenv("THEQUEUE_EPICOR_PASSWORD", "s3cret")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", settings.Epicor.APIKey)
	assert.Equal(t, "queueuser", settings.Epicor.Username)
	assert.Equal(t, "s3cret", settings.Epicor.Password)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("THEQUEUE_SERVER_PORT", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating settings")
}
