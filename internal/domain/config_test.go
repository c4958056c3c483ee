package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExchangeConfig() ExchangeConfig {
	return ExchangeConfig{
		Admin:             "0xab5801a7d398351b8be11c439e05c5b3259aec9b",
		TokenDenom:        "utoken",
		Treasury:          "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		ChallengingPeriod: 3600,
		VotingPeriod:      3600,
		MinBet:            100,
	}
}

func TestExchangeConfigValidate(t *testing.T) {
	require.NoError(t, validExchangeConfig().Validate())

	cfg := validExchangeConfig()
	cfg.Admin = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidIdentity)

	cfg = validExchangeConfig()
	cfg.Treasury = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidIdentity)

	cfg = validExchangeConfig()
	cfg.ChallengingPeriod = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPeriod)

	cfg = validExchangeConfig()
	cfg.VotingPeriod = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPeriod)

	cfg = validExchangeConfig()
	cfg.MinBet = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidMinBet)
}

func TestSetField(t *testing.T) {
	cfg := validExchangeConfig()

	require.NoError(t, cfg.SetField("admin", "0x5AAEB6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	assert.Equal(t, Identity("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"), cfg.Admin)

	require.NoError(t, cfg.SetField("token_denom", "ustake"))
	assert.Equal(t, "ustake", cfg.TokenDenom)

	require.NoError(t, cfg.SetField("platform_fee", "25"))
	assert.Equal(t, int64(25), cfg.PlatformFee)

	require.NoError(t, cfg.SetField("challenging_period", "7200"))
	assert.Equal(t, int64(7200), cfg.ChallengingPeriod)

	require.NoError(t, cfg.SetField("voting_period", "1800"))
	assert.Equal(t, int64(1800), cfg.VotingPeriod)

	require.NoError(t, cfg.SetField("min_bet", "250"))
	assert.Equal(t, int64(250), cfg.MinBet)

	require.NoError(t, cfg.SetField("whitelist_enabled", "true"))
	assert.True(t, cfg.WhitelistEnabled)
}

func TestSetFieldRejectsBadValues(t *testing.T) {
	cases := []struct {
		field, value string
		want         error
	}{
		{"admin", "not-an-address", ErrInvalidIdentity},
		{"platform_fee", "-1", ErrInvalidField},
		{"platform_fee", "free", ErrInvalidField},
		{"challenging_period", "0", ErrInvalidPeriod},
		{"challenging_period", "soon", ErrInvalidField},
		{"voting_period", "-10", ErrInvalidPeriod},
		{"min_bet", "0", ErrInvalidMinBet},
		{"min_bet", "lots", ErrInvalidField},
		{"whitelist_enabled", "maybe", ErrInvalidField},
		{"max_bet", "100", ErrInvalidField},
	}
	for _, tc := range cases {
		cfg := validExchangeConfig()
		assert.ErrorIs(t, cfg.SetField(tc.field, tc.value), tc.want, "%s=%s", tc.field, tc.value)
	}
}
