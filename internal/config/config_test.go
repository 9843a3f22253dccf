package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToml = `
[development]
host = "localhost"
port = 5000
log_level = "trace"
log_to_stdout = true
static_root_path = "./static"
uploads_root_path = "./uploads"

[production]
host = "0.0.0.0"
port = 5000
log_level = "debug"
logs_path = "/var/log/admin-dashboard"
sentry_enabled = true
cors_origin = "https://dashboard.example.com"
static_root_path = "/var/www/dashboard"
uploads_root_path = "/var/www/uploads"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testToml), 0o600))
	return path
}

func TestLoad_Development(t *testing.T) {
	cfg, err := Load("development", writeTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.CorsOrigin)

	// rate limit defaults kick in even when the file says nothing
	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.Equal(t, 15, cfg.RateLimitWindowMinutes)
	assert.Equal(t, 10, cfg.LoginRateLimitMaxRequests)
}

func TestLoad_Production(t *testing.T) {
	cfg, err := Load("prod", writeTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.SentryEnabled)
	assert.Equal(t, "https://dashboard.example.com", cfg.CorsOrigin)
}

func TestLoad_UnknownEnv(t *testing.T) {
	_, err := Load("staging", writeTestConfig(t))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("CORS_ORIGIN", "https://other.example.com")

	cfg, err := Load("development", writeTestConfig(t))
	require.NoError(t, err)

	// NODE_ENV wins over the flag value
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "https://other.example.com", cfg.CorsOrigin)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("development", "/nonexistent/config.toml")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "./static", cfg.StaticRootPath)
}
