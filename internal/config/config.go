// Package config defines the top-level configuration for the coin dashboard
// and provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by COINDASH_* environment variables.
type Config struct {
	Market      MarketConfig      `toml:"market"`
	Counter     CounterConfig     `toml:"counter"`
	CounterDash CounterDashConfig `toml:"counterdash"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// MarketConfig holds the market data source endpoint and the initial view
// state of the market dashboard.
type MarketConfig struct {
	BaseURL      string   `toml:"base_url"`
	APIKey       string   `toml:"api_key"`
	VsCurrency   string   `toml:"vs_currency"`
	PollInterval duration `toml:"poll_interval"`
	Timeout      duration `toml:"timeout"`
	PageSize     int      `toml:"page_size"`
	SortKey      string   `toml:"sort_key"`
	SortDir      string   `toml:"sort_dir"`
}

// CounterConfig holds the counter service parameters.
type CounterConfig struct {
	// Backend selects the store: "memory" for a single instance, "redis" to
	// share one total between replicas.
	Backend string `toml:"backend"`
	Key     string `toml:"key"`
	// InvalidValue selects what happens to a non-numeric value: "coerce"
	// treats it as 0, "reject" answers 400.
	InvalidValue string `toml:"invalid_value"`
	Message      string `toml:"message"`
}

// CounterDashConfig holds the counter dashboard parameters.
type CounterDashConfig struct {
	BaseURL      string   `toml:"base_url"`
	PollInterval duration `toml:"poll_interval"`
	Timeout      duration `toml:"timeout"`
	Step         int64    `toml:"step"`
	HistorySize  int      `toml:"history_size"`
	Actions      []string `toml:"actions"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is the number of mutating requests a client IP may issue per
	// RateWindow. Zero disables rate limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			BaseURL:      "https://api.coingecko.com/api/v3",
			VsCurrency:   "usd",
			PollInterval: duration{60 * time.Second},
			Timeout:      duration{15 * time.Second},
			PageSize:     50,
			SortKey:      "market_cap_rank",
			SortDir:      "asc",
		},
		Counter: CounterConfig{
			Backend:      "memory",
			Key:          "coindash:total",
			InvalidValue: "coerce",
			Message:      "Coin added",
		},
		CounterDash: CounterDashConfig{
			BaseURL:      "http://localhost:8000",
			PollInterval: duration{3 * time.Second},
			Timeout:      duration{5 * time.Second},
			Step:         1,
			HistorySize:  20,
			Actions:      []string{"add", "reset"},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Second},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"counter":     true,
	"market":      true,
	"counterdash": true,
	"full":        true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Runs reports whether the given component runs in the configured mode.
// Components are "counter", "market" and "counterdash".
func (c *Config) Runs(component string) bool {
	mode := strings.ToLower(c.Mode)
	return mode == "full" || mode == component
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return (c.Runs("counter") && c.Counter.Backend == "redis") || c.Server.RateLimit > 0
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: counter, market, counterdash, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Market
	if c.Runs("market") {
		if err := checkURL(c.Market.BaseURL); err != nil {
			errs = append(errs, "market: base_url "+err.Error())
		}
		if c.Market.VsCurrency == "" {
			errs = append(errs, "market: vs_currency must not be empty")
		}
		if c.Market.PollInterval.Duration <= 0 {
			errs = append(errs, "market: poll_interval must be > 0")
		}
		if c.Market.Timeout.Duration <= 0 {
			errs = append(errs, "market: timeout must be > 0")
		}
		if !domain.ValidPageSize(c.Market.PageSize) {
			errs = append(errs, fmt.Sprintf("market: page_size must be one of %v, got %d", domain.PageSizes, c.Market.PageSize))
		}
		if !domain.SortKey(c.Market.SortKey).Valid() {
			errs = append(errs, fmt.Sprintf("market: unknown sort_key %q", c.Market.SortKey))
		}
		if !domain.SortDirection(c.Market.SortDir).Valid() {
			errs = append(errs, fmt.Sprintf("market: sort_dir must be asc or desc, got %q", c.Market.SortDir))
		}
	}

	// Counter
	if c.Runs("counter") {
		if c.Counter.Backend != "memory" && c.Counter.Backend != "redis" {
			errs = append(errs, fmt.Sprintf("counter: backend must be memory or redis, got %q", c.Counter.Backend))
		}
		if c.Counter.Backend == "redis" && c.Counter.Key == "" {
			errs = append(errs, "counter: key must not be empty for the redis backend")
		}
		if c.Counter.InvalidValue != "coerce" && c.Counter.InvalidValue != "reject" {
			errs = append(errs, fmt.Sprintf("counter: invalid_value must be coerce or reject, got %q", c.Counter.InvalidValue))
		}
	}

	// Counter dashboard
	if c.Runs("counterdash") {
		if err := checkURL(c.CounterDash.BaseURL); err != nil {
			errs = append(errs, "counterdash: base_url "+err.Error())
		}
		if c.CounterDash.PollInterval.Duration <= 0 {
			errs = append(errs, "counterdash: poll_interval must be > 0")
		}
		if c.CounterDash.Timeout.Duration <= 0 {
			errs = append(errs, "counterdash: timeout must be > 0")
		}
		if c.CounterDash.HistorySize < 0 {
			errs = append(errs, "counterdash: history_size must be >= 0")
		}
		for _, a := range c.CounterDash.Actions {
			if a != "add" && a != "reset" {
				errs = append(errs, fmt.Sprintf("counterdash: unknown action %q (valid: add, reset)", a))
			}
		}
	}

	// Redis
	if c.UsesRedis() {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func checkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got %q", raw)
	}
	return nil
}
