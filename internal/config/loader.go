package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PREDEX_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PREDEX_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchange ──
	setStr(&cfg.Exchange.Admin, "PREDEX_EXCHANGE_ADMIN")
	setStr(&cfg.Exchange.Treasury, "PREDEX_EXCHANGE_TREASURY")
	setStr(&cfg.Exchange.TokenDenom, "PREDEX_EXCHANGE_TOKEN_DENOM")
	setInt64(&cfg.Exchange.PlatformFee, "PREDEX_EXCHANGE_PLATFORM_FEE")
	setDuration(&cfg.Exchange.ChallengingPeriod, "PREDEX_EXCHANGE_CHALLENGING_PERIOD")
	setDuration(&cfg.Exchange.VotingPeriod, "PREDEX_EXCHANGE_VOTING_PERIOD")
	setInt64(&cfg.Exchange.MinBet, "PREDEX_EXCHANGE_MIN_BET")
	setBool(&cfg.Exchange.WhitelistEnabled, "PREDEX_EXCHANGE_WHITELIST_ENABLED")
	setStringSlice(&cfg.Exchange.Whitelist, "PREDEX_EXCHANGE_WHITELIST")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PREDEX_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PREDEX_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDEX_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDEX_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDEX_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDEX_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDEX_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDEX_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDEX_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDEX_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PREDEX_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDEX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDEX_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDEX_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDEX_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDEX_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PREDEX_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDEX_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDEX_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDEX_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDEX_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PREDEX_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PREDEX_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "PREDEX_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PREDEX_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PREDEX_SERVER_API_KEY")
	setInt(&cfg.Server.RequestLimit, "PREDEX_SERVER_REQUEST_LIMIT")
	setDuration(&cfg.Server.RequestWindow, "PREDEX_SERVER_REQUEST_WINDOW")

	// ── Top-level ──
	setStr(&cfg.Mode, "PREDEX_MODE")
	setStr(&cfg.LogLevel, "PREDEX_LOG_LEVEL")
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
