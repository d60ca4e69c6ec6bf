package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SHEET_ID", "abc123")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.Sheet.ID)
	assert.Equal(t, "Products", cfg.Sheet.Primary)
	assert.Equal(t, "Amazon", cfg.Sheet.Marketplace)
	assert.Equal(t, "FacebookAds", cfg.Sheet.Promotional)
	assert.Equal(t, "fixed", cfg.Sheet.Envelope)
	assert.Equal(t, 30*time.Second, cfg.Sheet.Timeout)
	assert.Equal(t, 0, cfg.Sheet.RetryMax)
	assert.Equal(t, "wa.me", cfg.Inquiry.Domain)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "storefront", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.LogsinkEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SHEET_ID", "abc123")
	t.Setenv("SHEET_ENVELOPE", "marker")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("INQUIRY_RECIPIENT", "15551234567")
	t.Setenv("REFRESH_INTERVAL", "90s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "marker", cfg.Sheet.Envelope)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "15551234567", cfg.Inquiry.Recipient)
	assert.Equal(t, 90*time.Second, cfg.RefreshInterval)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Sheet: SheetConfig{ID: "x", Envelope: "fixed"},
			Cache: CacheConfig{Backend: "file"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing sheet id", mutate: func(c *Config) { c.Sheet.ID = "  " }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "s3" }, wantErr: true},
		{name: "unknown envelope", mutate: func(c *Config) { c.Sheet.Envelope = "regex" }, wantErr: true},
		{name: "redis without url", mutate: func(c *Config) { c.Cache.Backend = "redis" }, wantErr: true},
		{name: "azure without account", mutate: func(c *Config) { c.Cache.Backend = "azure" }, wantErr: true},
		{name: "azure with account", mutate: func(c *Config) {
			c.Cache.Backend = "azure"
			c.Azure.AccountName = "acct"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadCacheSkipsSheetSettings(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHEET_ID", "")
	t.Setenv("CACHE_BACKEND", "sqlite")

	cfg, err := LoadCache()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "storefront_products", cfg.Cache.Key)

	t.Setenv("CACHE_BACKEND", "redis")
	_, err = LoadCache()
	assert.Error(t, err, "cache settings are still checked")
}
