package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

// clearEnv blanks every variable Config reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FX_API_KEY", "FX_PROVIDER", "FX_API_URL", "FX_BASE_CURRENCY", "FX_HTTP_TIMEOUT",
		"DB_PATH", "LOG_PATH", "LOG_LEVEL", "LOG_STDERR", "METRICS_TEXTFILE", "PORT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "exchangeratehost", cfg.Provider)
	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "fx.db", cfg.DBPath)
	assert.Equal(t, "fx.log", cfg.LogPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogStderr)
	assert.Empty(t, cfg.APIKey)

	err = cfg.RequireAPIKey()
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Configuration))
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "fx.env")
	content := "FX_API_KEY=secret\nFX_BASE_CURRENCY=usd\nFX_HTTP_TIMEOUT=3s\nDB_PATH=/tmp/rates.db\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/tmp/rates.db", cfg.DBPath)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "fx.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FX_API_KEY=from-file\n"), 0o600))
	t.Setenv("FX_API_KEY", "from-env")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Configuration))
}

func TestLoad_BlankKeyIsMissing(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("FX_API_KEY", "   ")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.RequireAPIKey())
}
