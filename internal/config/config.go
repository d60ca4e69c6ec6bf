package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StoreName       string          `envconfig:"STORE_NAME" default:"Laptop Store"`
	RefreshInterval time.Duration   `envconfig:"REFRESH_INTERVAL" default:"10m"`
	Sheet           SheetConfig     `envconfig:"SHEET"`
	Inquiry         InquiryConfig   `envconfig:"INQUIRY"`
	Cache           CacheConfig     `envconfig:"CACHE"`
	Azure           AzureConfig     `envconfig:"AZURE_STORAGE"`
	Logsink         LogsinkConfig   `envconfig:"LOGSINK"`
	Clarity         ClarityConfig   `envconfig:"CLARITY"`
	Telemetry       TelemetryConfig `envconfig:"OTEL"`
}

// SheetConfig locates the published spreadsheet and names the tab for each source.
type SheetConfig struct {
	ID          string        `envconfig:"ID"`
	BaseURL     string        `envconfig:"BASE_URL" default:"https://docs.google.com/spreadsheets/d"`
	Primary     string        `envconfig:"PRIMARY" default:"Products"`
	Marketplace string        `envconfig:"MARKETPLACE" default:"Amazon"`
	Promotional string        `envconfig:"PROMOTIONAL" default:"FacebookAds"`
	Envelope    string        `envconfig:"ENVELOPE" default:"fixed"`
	RetryMax    int           `envconfig:"RETRY_MAX" default:"0"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s"`

	HTTPClient *http.Client `ignored:"true"`
}

type InquiryConfig struct {
	Domain    string `envconfig:"DOMAIN" default:"wa.me"`
	Recipient string `envconfig:"RECIPIENT" default:"916351541231"`
}

type CacheConfig struct {
	Backend   string `envconfig:"BACKEND" default:"file"`
	Dir       string `envconfig:"DIR" default:"cache"`
	Key       string `envconfig:"KEY" default:"storefront_products"`
	RedisURL  string `envconfig:"REDIS_URL"`
	SQLite    string `envconfig:"SQLITE_PATH" default:"cache/storefront.db"`
	Container string `envconfig:"CONTAINER" default:"storefront"`
}

// AzureConfig keeps the storage account names used by the blob cache and the log sink.
// An empty key means the default Azure credential chain is used instead of a shared key.
type AzureConfig struct {
	AccountName string `envconfig:"ACCOUNT_NAME"`
	AccountKey  string `envconfig:"PRIMARY_ACCOUNT_KEY"`
}

type LogsinkConfig struct {
	Container  string        `envconfig:"CONTAINER"`
	BlobName   string        `envconfig:"BLOB_NAME"`
	FlushEvery time.Duration `envconfig:"FLUSH_EVERY" default:"2s"`
}

type ClarityConfig struct {
	ProjectID string `envconfig:"PROJECT_ID"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `envconfig:"EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"storefront"`
}

var (
	validBackends  = map[string]bool{"file": true, "memory": true, "azure": true, "redis": true, "sqlite": true}
	validEnvelopes = map[string]bool{"fixed": true, "marker": true}
)

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCache is Load for tools that only touch the cache; the sheet settings are
// parsed but not required.
func LoadCache() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCache(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Sheet.ID) == "" {
		return errors.New("SHEET_ID is required")
	}
	if !validEnvelopes[c.Sheet.Envelope] {
		return fmt.Errorf("unknown sheet envelope %q (valid: fixed, marker)", c.Sheet.Envelope)
	}
	return c.ValidateCache()
}

func (c *Config) ValidateCache() error {
	if !validBackends[c.Cache.Backend] {
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return errors.New("CACHE_REDIS_URL is required for the redis cache backend")
	}
	if c.Cache.Backend == "azure" && c.Azure.AccountName == "" {
		return errors.New("AZURE_STORAGE_ACCOUNT_NAME is required for the azure cache backend")
	}
	return nil
}

// LogsinkEnabled reports whether log records should also be shipped to an append blob.
func (c *Config) LogsinkEnabled() bool {
	return c.Logsink.Container != "" && c.Azure.AccountName != "" && c.Azure.AccountKey != ""
}
