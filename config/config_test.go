package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Equal(t, DefaultTimezone, cfg.Browser.Timezone)
	assert.Equal(t, 500, cfg.Runner.ExportMaxOutput)

	_, err = os.Stat(path)
	assert.NoError(t, err, "defaults are written to disk")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server, again.Server)
	assert.Equal(t, cfg.Browser.LaunchArgs, again.Browser.LaunchArgs)
}

func TestLoadReadsFileAndRepairsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug = true

[server]
port = "9090"

[browser]
locale = "de-DE"
viewport_width = 0

[proxy]
hostname = "proxy.internal"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "de-DE", cfg.Browser.Locale)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Equal(t, "proxy.internal", cfg.Proxy.Hostname)
	assert.Equal(t, 8000, cfg.Proxy.Port)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = \"9090\"\n"), 0o644))
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("PROXY_PASSWORD", "s3cret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Proxy.Password)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
