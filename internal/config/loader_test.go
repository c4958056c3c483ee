package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mode = "local"
log_level = "debug"

[exchange]
admin = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"
treasury = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
min_bet = 500
challenging_period = "24h"

[server]
port = 9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(500), cfg.Exchange.MinBet)
	assert.Equal(t, 24*time.Hour, cfg.Exchange.ChallengingPeriod.Duration)
	assert.Equal(t, 9100, cfg.Server.Port)

	// Untouched fields keep their defaults.
	assert.Equal(t, "utoken", cfg.Exchange.TokenDenom)
	assert.Equal(t, 72*time.Hour, cfg.Exchange.VotingPeriod.Duration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREDEX_MODE", "local")
	t.Setenv("PREDEX_POSTGRES_PASSWORD", "sekret")
	t.Setenv("PREDEX_SERVER_PORT", "9200")
	t.Setenv("PREDEX_EXCHANGE_MIN_BET", "777")
	t.Setenv("PREDEX_EXCHANGE_WHITELIST_ENABLED", "false")
	t.Setenv("PREDEX_EXCHANGE_VOTING_PERIOD", "36h")
	t.Setenv("PREDEX_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "local", cfg.Mode)
	assert.Equal(t, "sekret", cfg.Postgres.Password)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, int64(777), cfg.Exchange.MinBet)
	assert.False(t, cfg.Exchange.WhitelistEnabled)
	assert.Equal(t, 36*time.Hour, cfg.Exchange.VotingPeriod.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	t.Setenv("PREDEX_SERVER_PORT", "a-lot")
	t.Setenv("PREDEX_EXCHANGE_VOTING_PERIOD", "sometime")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 72*time.Hour, cfg.Exchange.VotingPeriod.Duration)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Defaults()
		cfg.Exchange.Admin = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"
		cfg.Exchange.Treasury = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
		return cfg
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Mode = "cluster"
	assert.ErrorContains(t, cfg.Validate(), "unknown mode")

	cfg = valid()
	cfg.Exchange.Admin = ""
	assert.ErrorContains(t, cfg.Validate(), "admin must not be empty")

	cfg = valid()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "port must be 1-65535")

	// Server mode demands the external services.
	cfg = valid()
	cfg.Redis.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "redis: addr")

	// Local mode does not.
	cfg = valid()
	cfg.Mode = "local"
	cfg.Redis.Addr = ""
	cfg.S3.Endpoint = ""
	cfg.Postgres.Host = ""
	require.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pg-secret"
	cfg.Postgres.DSN = "postgres://u:p@h/db"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-secret"

	red := RedactedConfig(&cfg)

	assert.NotContains(t, red.Postgres.Password, "pg-secret")
	assert.NotContains(t, red.Postgres.DSN, "p@h")
	assert.NotContains(t, red.Redis.Password, "redis-secret")
	assert.NotContains(t, red.S3.SecretKey, "s3-secret")
	assert.NotContains(t, red.Server.APIKey, "api-secret")

	// Redaction never mutates the source.
	assert.Equal(t, "pg-secret", cfg.Postgres.Password)
}
