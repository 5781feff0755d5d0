package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the application configuration. Database settings live in
// db.Config and are read from the environment separately.
type Config struct {
	Environment    string          `toml:"environment"`
	SystemCurrency string          `toml:"system_currency"`
	Server         ServerConfig    `toml:"server"`
	PriceFeed      PriceFeedConfig `toml:"price_feed"`
	Ledger         LedgerConfig    `toml:"ledger"`
}

type ServerConfig struct {
	Port            string `toml:"port"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// GetShutdownTimeout parses ShutdownTimeout, defaulting to 10s.
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

type PriceFeedConfig struct {
	BaseURL     string  `toml:"base_url"`
	RateLimit   float64 `toml:"rate_limit"` // requests per second
	Timeout     string  `toml:"timeout"`    // per ticker
	Concurrency int     `toml:"concurrency"`
}

// GetTimeout parses Timeout, defaulting to 10s.
func (c *PriceFeedConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

type LedgerConfig struct {
	HoldingCacheTTL  string `toml:"holding_cache_ttl"`
	RecomputeOnWrite bool   `toml:"recompute_on_write"`
}

// GetHoldingCacheTTL parses HoldingCacheTTL, defaulting to 10m.
func (c *LedgerConfig) GetHoldingCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.HoldingCacheTTL)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

func NewDefaultConfig() *Config {
	return &Config{
		Environment:    "development",
		SystemCurrency: "AUD",
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: "10s",
		},
		PriceFeed: PriceFeedConfig{
			BaseURL:     "https://query1.finance.yahoo.com",
			RateLimit:   5,
			Timeout:     "10s",
			Concurrency: 4,
		},
		Ledger: LedgerConfig{
			HoldingCacheTTL:  "10m",
			RecomputeOnWrite: true,
		},
	}
}

// Load reads .env (if present), then the TOML file named by CONFIG_FILE or
// any of paths, then applies environment overrides.
func Load(paths ...string) (*Config, error) {
	// missing .env is the normal case outside local development
	_ = godotenv.Load()

	cfg := NewDefaultConfig()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		paths = append(paths, p)
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("SYSTEM_CURRENCY"); v != "" {
		cfg.SystemCurrency = v
	}
	cfg.SystemCurrency = strings.ToUpper(strings.TrimSpace(cfg.SystemCurrency))

	if v := os.Getenv("PRICE_FEED_BASE_URL"); v != "" {
		cfg.PriceFeed.BaseURL = v
	}
	if v := os.Getenv("PRICE_FEED_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PriceFeed.RateLimit = f
		}
	}
	if v := os.Getenv("PRICE_FEED_TIMEOUT"); v != "" {
		cfg.PriceFeed.Timeout = v
	}
	if v := os.Getenv("PRICE_FEED_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PriceFeed.Concurrency = n
		}
	}
	if v := os.Getenv("HOLDING_CACHE_TTL"); v != "" {
		cfg.Ledger.HoldingCacheTTL = v
	}
	if v := os.Getenv("RECOMPUTE_ON_WRITE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ledger.RecomputeOnWrite = b
		}
	}
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if len(c.SystemCurrency) != 3 || money.GetCurrency(c.SystemCurrency) == nil {
		return fmt.Errorf("system_currency %q is not an ISO-4217 code", c.SystemCurrency)
	}
	if c.PriceFeed.Concurrency < 1 {
		c.PriceFeed.Concurrency = 1
	}
	if c.PriceFeed.RateLimit <= 0 {
		return fmt.Errorf("price_feed.rate_limit must be positive")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
