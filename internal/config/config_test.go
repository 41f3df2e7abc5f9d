package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp isolates the test from .env and .flixctl.yaml files in the working tree.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendFile, cfg.Session.Backend)
	assert.Equal(t, filepath.Join(dir, "xdg", "flixctl"), cfg.Session.Path)
	assert.Equal(t, 300*time.Second, cfg.Session.ExpiryMargin)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.False(t, cfg.Auth.DiscardStaleResolutions)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Empty(t, cfg.File)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `api:
  base_url: https://api.movieflix.dev
  timeout: 5s
session:
  backend: redis
  redis_addr: redis:6379
cache:
  ttl: 0s
auth:
  discard_stale_resolutions: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".flixctl.yaml"), []byte(yaml), 0o600))
	t.Setenv("FLIXCTL_API_BASE_URL", "https://override.movieflix.dev")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://override.movieflix.dev", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.Zero(t, cfg.Cache.TTL)
	assert.True(t, cfg.Auth.DiscardStaleResolutions)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Cleanup(func() { os.Unsetenv("FLIXCTL_LOGGING_LEVEL") })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FLIXCTL_LOGGING_LEVEL=debug\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_entries: 32\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Cache.MaxEntries)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"backend", map[string]string{"FLIXCTL_SESSION_BACKEND": "sqlite"}},
		{"log level", map[string]string{"FLIXCTL_LOGGING_LEVEL": "loud"}},
		{"log format", map[string]string{"FLIXCTL_LOGGING_FORMAT": "xml"}},
		{"max entries", map[string]string{"FLIXCTL_CACHE_MAX_ENTRIES": "0"}},
		{"timeout", map[string]string{"FLIXCTL_API_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
