package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv removes every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		legacyDSNEnv,
		"TASKLEARN_DATABASE_DSN",
		"TASKLEARN_MAX_CONNS",
		"TASKLEARN_FIXTURE_DIR",
		"TASKLEARN_FIXTURE_MODE",
		"TASKLEARN_LOG_LEVEL",
	}
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultDSN, cfg.DatabaseDSN)
	assert.Equal(t, DefaultMaxConns, cfg.MaxConns)
	assert.Equal(t, FixtureModeStdin, cfg.FixtureMode)
	assert.Empty(t, cfg.FixtureDir)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeSettings(t, `
database_dsn: postgres://u:p@db:5432/tasks?sslmode=disable
max_conns: 8
fixture_mode: server
log_level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/tasks?sslmode=disable", cfg.DatabaseDSN)
	assert.Equal(t, 8, cfg.MaxConns)
	assert.Equal(t, FixtureModeServer, cfg.FixtureMode)
	assert.Equal(t, DefaultFixtureDir, cfg.FixtureDir, "server mode falls back to the host fixture dir")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeSettings(t, "max_conns: 8\nfixture_dir: /from/file\n")
	t.Setenv("TASKLEARN_MAX_CONNS", "2")
	t.Setenv("TASKLEARN_FIXTURE_DIR", "/from/env")
	t.Setenv("TASKLEARN_DATABASE_DSN", "postgres://env@localhost/env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxConns)
	assert.Equal(t, "/from/env", cfg.FixtureDir)
	assert.Equal(t, "postgres://env@localhost/env", cfg.DatabaseDSN)
}

func TestLoad_LegacyDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv(legacyDSNEnv, "postgres://legacy@localhost/legacy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://legacy@localhost/legacy", cfg.DatabaseDSN)

	t.Setenv("TASKLEARN_DATABASE_DSN", "postgres://new@localhost/new")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://new@localhost/new", cfg.DatabaseDSN)
}

func TestLoad_UnknownFixtureMode(t *testing.T) {
	clearEnv(t)

	path := writeSettings(t, "fixture_mode: ftp\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown fixture mode")
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)

	path := writeSettings(t, "max_conns: [1, 2\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ZeroValuesNormalized(t *testing.T) {
	clearEnv(t)

	path := writeSettings(t, "max_conns: 0\nlog_level: \"\"\nfixture_mode: STDIN\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxConns, cfg.MaxConns)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, FixtureModeStdin, cfg.FixtureMode)
}
