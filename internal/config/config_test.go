package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "hoopsync.db", cfg.Store.Path)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, 30, cfg.Sources.TimeoutSecs)
	assert.Equal(t, 30*time.Second, cfg.Sources.Timeout())
	assert.Equal(t, "https://cdn.nba.com/static/json/liveData", cfg.Sources.LiveBaseURL)
	assert.Equal(t, "https://stats.nba.com/stats", cfg.Sources.StatsBaseURL)
	assert.InDelta(t, 2.0, cfg.Sources.RatePerSec, 0.001)
	assert.Equal(t, 2, cfg.Sources.LiveMaxAgeDays)
	assert.Equal(t, 48*time.Hour, cfg.Sources.LiveMaxAge())
	assert.Equal(t, 4, cfg.Sources.Retry.MaxAttempts)
	assert.Equal(t, 500, cfg.Sources.Retry.BaseDelayMS)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/hoopsync
log:
  level: debug
  format: console
sync:
  workers: 8
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/hoopsync", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Sync.Workers)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Sources.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HOOPSYNC_STORE_DRIVER", "postgres")
	t.Setenv("HOOPSYNC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("HOOPSYNC_SYNC_WORKERS", "16")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Sync.Workers)
}

func validDefaults() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite", Path: "hoopsync.db"},
		Sources: SourcesConfig{
			RatePerSec: 2.0,
			Retry:      RetryConfig{MaxAttempts: 4},
		},
		Sync: SyncConfig{Workers: 4},
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidateDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")

	cfg = validDefaults()
	cfg.Store.Driver = "postgres"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/hoopsync"
	assert.NoError(t, cfg.Validate())
}

func TestValidateSQLitePathRequired(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateWorkerBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Sync.Workers = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.workers must be between 1 and 32")

	cfg.Sync.Workers = 33
	assert.Error(t, cfg.Validate())

	cfg.Sync.Workers = 32
	assert.NoError(t, cfg.Validate())
}

func TestValidateSourceBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Sources.RatePerSec = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources.rate_per_sec")

	cfg = validDefaults()
	cfg.Sources.Retry.MaxAttempts = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources.retry.max_attempts")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
