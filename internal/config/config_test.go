package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"DATABASE_URL", "PORT", "JWT_SECRET", "REDIS_URL", "CORS_ALLOWED_ORIGINS",
		"LEDGER_MAX_RETRIES", "LEDGER_TX_TIMEOUT", "NOTIFY_WORKERS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.LedgerMaxRetries)
	assert.Equal(t, 5*time.Second, cfg.LedgerTxTimeout)
	assert.Equal(t, 5, cfg.NotifyWorkers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
	assert.True(t, cfg.UsingDevSecret())
}

func TestLoad_EnvOverridesAndDotenv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PORT=9090\nLEDGER_TX_TIMEOUT=750ms\nJWT_SECRET=from-file\n"), 0o600))

	// godotenv never overrides a variable that exists, even when empty.
	for _, key := range []string{"PORT", "LEDGER_TX_TIMEOUT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LEDGER_MAX_RETRIES", "1")
	t.Setenv("NOTIFY_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.LedgerTxTimeout)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 1, cfg.LedgerMaxRetries)
	assert.Equal(t, 2, cfg.NotifyWorkers)
	assert.False(t, cfg.UsingDevSecret())
}

func TestLoad_RejectsInvalidBounds(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_MAX_RETRIES", "-1")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LEDGER_MAX_RETRIES", "")
	t.Setenv("NOTIFY_WORKERS", "0")
	_, err = Load()
	assert.Error(t, err)
}
