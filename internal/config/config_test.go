package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"CHATLINE_API_URL",
	"CHATLINE_HTTP_TIMEOUT",
	"CHATLINE_STREAM_TIMEOUT",
	"CHATLINE_SYNC_INTERVAL",
	"CHATLINE_EXPORT_DIR",
	"CHATLINE_SHARE_EXPIRES_HOURS",
}

// isolate runs the test in an empty directory with no chatline variables set
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, k := range allKeys {
		if old, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, old) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(k) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.StreamTimeout)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, "./exports", cfg.ExportDir)
	assert.Equal(t, 24, cfg.ShareExpiresHours)
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("CHATLINE_API_URL", "https://chat.example.com/api")
	t.Setenv("CHATLINE_STREAM_TIMEOUT", "2m")
	t.Setenv("CHATLINE_SYNC_INTERVAL", "5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com/api", cfg.APIURL)
	assert.Equal(t, 2*time.Minute, cfg.StreamTimeout)
	assert.Equal(t, 5*time.Second, cfg.SyncInterval)
}

func TestLoad_EnvFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "chatline.env")
	require.NoError(t, os.WriteFile(path, []byte("CHATLINE_EXPORT_DIR=/tmp/out\nCHATLINE_SHARE_EXPIRES_HOURS=0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.ExportDir)
	assert.Equal(t, 0, cfg.ShareExpiresHours)
}

func TestLoad_DotEnvInWorkingDir(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("CHATLINE_API_URL=http://10.0.0.1/api\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1/api", cfg.APIURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "CHATLINE_HTTP_TIMEOUT", "soon"},
		{"zero interval", "CHATLINE_SYNC_INTERVAL", "0s"},
		{"negative hours", "CHATLINE_SHARE_EXPIRES_HOURS", "-1"},
		{"negative stream timeout", "CHATLINE_STREAM_TIMEOUT", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
