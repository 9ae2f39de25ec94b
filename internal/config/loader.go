package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COINDASH_* environment variable overrides, and
// returns the final Config. A missing file is not an error: the defaults and
// the environment are used as-is. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COINDASH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty).
func applyEnvOverrides(cfg *Config) {
	// ── Market ──
	setStr(&cfg.Market.BaseURL, "COINDASH_MARKET_BASE_URL")
	setStr(&cfg.Market.APIKey, "COINDASH_MARKET_API_KEY")
	setStr(&cfg.Market.VsCurrency, "COINDASH_MARKET_VS_CURRENCY")
	setDuration(&cfg.Market.PollInterval, "COINDASH_MARKET_POLL_INTERVAL")
	setDuration(&cfg.Market.Timeout, "COINDASH_MARKET_TIMEOUT")
	setInt(&cfg.Market.PageSize, "COINDASH_MARKET_PAGE_SIZE")
	setStr(&cfg.Market.SortKey, "COINDASH_MARKET_SORT_KEY")
	setStr(&cfg.Market.SortDir, "COINDASH_MARKET_SORT_DIR")

	// ── Counter ──
	setStr(&cfg.Counter.Backend, "COINDASH_COUNTER_BACKEND")
	setStr(&cfg.Counter.Key, "COINDASH_COUNTER_KEY")
	setStr(&cfg.Counter.InvalidValue, "COINDASH_COUNTER_INVALID_VALUE")
	setStr(&cfg.Counter.Message, "COINDASH_COUNTER_MESSAGE")

	// ── Counter dashboard ──
	setStr(&cfg.CounterDash.BaseURL, "COINDASH_COUNTERDASH_BASE_URL")
	setDuration(&cfg.CounterDash.PollInterval, "COINDASH_COUNTERDASH_POLL_INTERVAL")
	setDuration(&cfg.CounterDash.Timeout, "COINDASH_COUNTERDASH_TIMEOUT")
	setInt64(&cfg.CounterDash.Step, "COINDASH_COUNTERDASH_STEP")
	setInt(&cfg.CounterDash.HistorySize, "COINDASH_COUNTERDASH_HISTORY_SIZE")
	setStringSlice(&cfg.CounterDash.Actions, "COINDASH_COUNTERDASH_ACTIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COINDASH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COINDASH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COINDASH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COINDASH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COINDASH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COINDASH_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "COINDASH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "COINDASH_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "COINDASH_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "COINDASH_SERVER_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.Mode, "COINDASH_MODE")
	setStr(&cfg.LogLevel, "COINDASH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
