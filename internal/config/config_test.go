package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval)
	assert.Equal(t, 300*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 0, cfg.MaxRows)
	assert.False(t, cfg.KeyIncludesPassword)
	assert.False(t, cfg.ReadOnly)
	assert.Empty(t, cfg.File)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
query_timeout: 5s
idle_timeout: 2m
max_rows: 500
key_includes_password: true
read_only: true
metrics_addr: "127.0.0.1:9102"
`), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 500, cfg.MaxRows)
	assert.True(t, cfg.KeyIncludesPassword)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, "127.0.0.1:9102", cfg.MetricsAddr)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_EnvOverrides(t *testing.T) {
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Setenv("MCP_QUERY_TIMEOUT", "45")
	t.Setenv("MCP_MAX_ROWS", "100")
	t.Setenv("MCP_READ_ONLY", "true")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 100, cfg.MaxRows)
	assert.True(t, cfg.ReadOnly)
}

func TestLoad_Invalid(t *testing.T) {
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Setenv("MCP_MAX_ROWS", "-1")
	_, err := Load(New(), "")
	assert.Error(t, err)

	t.Setenv("MCP_MAX_ROWS", "0")
	t.Setenv("MCP_LOG_LEVEL", "chatty")
	_, err = Load(New(), "")
	assert.Error(t, err)

	t.Setenv("MCP_LOG_LEVEL", "info")
	t.Setenv("MCP_IDLE_TIMEOUT", "soon")
	_, err = Load(New(), "")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("")
	assert.Error(t, err)
}
