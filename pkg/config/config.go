package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Shipping  ShippingConfig
	EasyPost  EasyPostConfig
	Sanity    SanityConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Shipping.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"STOREFRONT_DB_DSN" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the catalog lives in a local sqlite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

func (db DBConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

// RedisConfig is optional; an empty URL and address disables rate limiting.
type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// CORSConfig lists the storefront origins. An empty list mirrors any origin.
type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS"`
	MaxAge         time.Duration `envconfig:"STOREFRONT_CORS_MAX_AGE" default:"5m"`
}

type RateLimitConfig struct {
	QuoteLimit  int           `envconfig:"STOREFRONT_QUOTE_RATE_LIMIT" default:"60"`
	QuoteWindow time.Duration `envconfig:"STOREFRONT_QUOTE_RATE_WINDOW" default:"1m"`
}

type ShippingConfig struct {
	OriginName       string `envconfig:"STOREFRONT_SHIPPING_ORIGIN_NAME" default:"Storefront Fulfillment"`
	OriginStreet1    string `envconfig:"STOREFRONT_SHIPPING_ORIGIN_STREET1"`
	OriginCity       string `envconfig:"STOREFRONT_SHIPPING_ORIGIN_CITY"`
	OriginState      string `envconfig:"STOREFRONT_SHIPPING_ORIGIN_STATE"`
	OriginPostalCode string `envconfig:"STOREFRONT_SHIPPING_ORIGIN_POSTAL_CODE"`
	OriginCountry    string `envconfig:"STOREFRONT_SHIPPING_ORIGIN_COUNTRY" default:"US"`

	Currency                   string        `envconfig:"STOREFRONT_SHIPPING_CURRENCY" default:"USD"`
	FreeShippingThresholdCents int64         `envconfig:"STOREFRONT_SHIPPING_FREE_THRESHOLD_CENTS" default:"0"`
	QuoteTimeout               time.Duration `envconfig:"STOREFRONT_SHIPPING_QUOTE_TIMEOUT" default:"5s"`

	DefaultItemWeightOz float64 `envconfig:"STOREFRONT_SHIPPING_DEFAULT_WEIGHT_OZ" default:"16"`
	DefaultLengthIn     float64 `envconfig:"STOREFRONT_SHIPPING_DEFAULT_LENGTH_IN" default:"10"`
	DefaultWidthIn      float64 `envconfig:"STOREFRONT_SHIPPING_DEFAULT_WIDTH_IN" default:"8"`
	DefaultHeightIn     float64 `envconfig:"STOREFRONT_SHIPPING_DEFAULT_HEIGHT_IN" default:"4"`

	// FallbackRatesJSON holds a JSON array of fallback rate entries.
	FallbackRatesJSON string `envconfig:"STOREFRONT_SHIPPING_FALLBACK_RATES"`
}

// FallbackRate mirrors one configured fallback entry.
type FallbackRate struct {
	Carrier       string   `json:"carrier"`
	Service       string   `json:"service"`
	BaseCents     int64    `json:"baseCents"`
	PerPoundCents int64    `json:"perPoundCents"`
	EstimatedDays int      `json:"estimatedDays"`
	Countries     []string `json:"countries"`
}

// FallbackRates decodes FallbackRatesJSON. An empty value yields no entries.
func (s ShippingConfig) FallbackRates() ([]FallbackRate, error) {
	raw := strings.TrimSpace(s.FallbackRatesJSON)
	if raw == "" {
		return nil, nil
	}
	var rates []FallbackRate
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", EnvShippingFallbackRates, err)
	}
	return rates, nil
}

func (s ShippingConfig) validate() error {
	if s.QuoteTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvShippingQuoteTimeout)
	}
	if s.FreeShippingThresholdCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvShippingFreeThreshold)
	}
	if s.DefaultItemWeightOz <= 0 || s.DefaultLengthIn <= 0 || s.DefaultWidthIn <= 0 || s.DefaultHeightIn <= 0 {
		return fmt.Errorf("default parcel weight and dimensions must be positive")
	}
	if _, err := s.FallbackRates(); err != nil {
		return err
	}
	return nil
}

type EasyPostConfig struct {
	APIKey   string   `envconfig:"STOREFRONT_EASYPOST_API_KEY"`
	BaseURL  string   `envconfig:"STOREFRONT_EASYPOST_BASE_URL" default:"https://api.easypost.com/v2"`
	Carriers []string `envconfig:"STOREFRONT_EASYPOST_CARRIERS"`
}

// Enabled reports whether live carrier rates can be requested.
func (e EasyPostConfig) Enabled() bool {
	return strings.TrimSpace(e.APIKey) != ""
}

type SanityConfig struct {
	ProjectID  string `envconfig:"STOREFRONT_SANITY_PROJECT_ID"`
	Dataset    string `envconfig:"STOREFRONT_SANITY_DATASET" default:"production"`
	APIVersion string `envconfig:"STOREFRONT_SANITY_API_VERSION" default:"2024-01-01"`
	Token      string `envconfig:"STOREFRONT_SANITY_TOKEN"`
	UseCDN     bool   `envconfig:"STOREFRONT_SANITY_USE_CDN" default:"true"`
}

func (s SanityConfig) Enabled() bool {
	return strings.TrimSpace(s.ProjectID) != ""
}
