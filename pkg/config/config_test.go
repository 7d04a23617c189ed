package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Static.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.Static.BaseDelay)
	assert.Equal(t, "ui-pdp-image", cfg.Static.PhotoClass)

	assert.Equal(t, 860, cfg.Interactive.MinDim)
	assert.Equal(t, 980, cfg.Interactive.MaxDim)
	assert.Equal(t, 10, cfg.Interactive.MaxAttempts)
	assert.Equal(t, "scontent", cfg.Interactive.CDNMarker)
	assert.Equal(t, 1*time.Second, cfg.Interactive.StepDelay)

	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Equal(t, 1080, cfg.Browser.ViewportHeight)
	assert.True(t, cfg.Browser.Headless)

	assert.Equal(t, 100, cfg.Filter.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Filter.RequestTimeout)
	assert.Zero(t, cfg.Filter.CacheTTL)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMGHARVEST_MAX_RETRIES", "5")
	t.Setenv("IMGHARVEST_BASE_DELAY", "250ms")
	t.Setenv("IMGHARVEST_MIN_DIM", "500")
	t.Setenv("IMGHARVEST_MAX_DIM", "1200")
	t.Setenv("IMGHARVEST_POOL_SIZE", "8")
	t.Setenv("IMGHARVEST_HEADLESS", "false")
	t.Setenv("IMGHARVEST_COOKIES_FILE", "/tmp/cookies.json")
	t.Setenv("IMGHARVEST_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 5, cfg.Static.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Static.BaseDelay)
	assert.Equal(t, 500, cfg.Interactive.MinDim)
	assert.Equal(t, 1200, cfg.Interactive.MaxDim)
	assert.Equal(t, 8, cfg.Filter.PoolSize)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/tmp/cookies.json", cfg.Cookies.File)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("IMGHARVEST_MAX_RETRIES", "lots")
	t.Setenv("IMGHARVEST_BASE_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMGHARVEST_MAX_RETRIES")
	assert.Contains(t, err.Error(), "IMGHARVEST_BASE_DELAY")
	assert.Equal(t, 3, cfg.Static.MaxRetries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:      "zero retries",
			mutate:    func(c *Config) { c.Static.MaxRetries = 0 },
			wantError: "static max retries must be positive",
		},
		{
			name:      "inverted band",
			mutate:    func(c *Config) { c.Interactive.MinDim = 1000 },
			wantError: "min dimension cannot exceed max dimension",
		},
		{
			name:      "step budget below attempts",
			mutate:    func(c *Config) { c.Interactive.MaxSteps = 2 },
			wantError: "max steps cannot be lower than max attempts",
		},
		{
			name:      "empty pool",
			mutate:    func(c *Config) { c.Filter.PoolSize = 0 },
			wantError: "filter pool size must be positive",
		},
		{
			name:      "vault without passphrase",
			mutate:    func(c *Config) { c.Cookies.Vault = "/tmp/cookies.vault" },
			wantError: "cookie vault requires IMGHARVEST_PASSPHRASE",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"max-retries":  7,
		"base-delay":   2 * time.Second,
		"min-dim":      400,
		"max-dim":      0, // ignored
		"max-attempts": "ten",
		"cookies":      "cookies.json",
		"log-level":    "warn",
	})

	assert.Equal(t, 7, cfg.Static.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Static.BaseDelay)
	assert.Equal(t, 400, cfg.Interactive.MinDim)
	assert.Equal(t, 980, cfg.Interactive.MaxDim)
	assert.Equal(t, 10, cfg.Interactive.MaxAttempts)
	assert.Equal(t, "cookies.json", cfg.Cookies.File)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Static.PhotoClass = "gallery-photo"
	cfg.Filter.CacheTTL = 10 * time.Minute
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "gallery-photo", loaded.Static.PhotoClass)
	assert.Equal(t, 10*time.Minute, loaded.Filter.CacheTTL)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("static: [unclosed"), 0644))
	err = cfg.LoadFromFile(bad)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad(t *testing.T) {
	t.Run("precedence order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
static:
  max_retries: 4
  photo_class: file-class
interactive:
  min_dim: 700
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		t.Setenv("IMGHARVEST_MIN_DIM", "750")
		t.Setenv("IMGHARVEST_MAX_RETRIES", "6")

		cfg, err := Load(path, map[string]interface{}{"max-retries": 9})
		require.NoError(t, err)

		assert.Equal(t, 9, cfg.Static.MaxRetries)            // flag
		assert.Equal(t, 750, cfg.Interactive.MinDim)         // env
		assert.Equal(t, "file-class", cfg.Static.PhotoClass) // file
		assert.Equal(t, 980, cfg.Interactive.MaxDim)         // default
	})

	t.Run("validation failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("filter:\n  pool_size: -1\n"), 0644))

		cfg, err := Load(path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Nil(t, cfg)
	})
}
