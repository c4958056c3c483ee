package domain

import "strconv"

// ExchangeConfig is the singleton on-exchange configuration. It is created
// once at bootstrap and mutated only by the admin, one field at a time.
type ExchangeConfig struct {
	Admin             Identity
	TokenDenom        string
	PlatformFee       int64
	Treasury          Identity
	ChallengingPeriod int64 // seconds
	VotingPeriod      int64 // seconds
	MinBet            int64
	WhitelistEnabled  bool
}

// Validate checks the invariants that hold for any stored config.
func (c ExchangeConfig) Validate() error {
	if c.Admin == "" {
		return ErrInvalidIdentity
	}
	if c.Treasury == "" {
		return ErrInvalidIdentity
	}
	if c.ChallengingPeriod == 0 || c.VotingPeriod == 0 {
		return ErrInvalidPeriod
	}
	if c.MinBet <= 0 {
		return ErrInvalidMinBet
	}
	return nil
}

// SetField updates a single named field from its string representation,
// re-validating the resulting value. Unknown fields fail with
// ErrInvalidField.
func (c *ExchangeConfig) SetField(field, value string) error {
	switch field {
	case "admin":
		id, err := ParseIdentity(value)
		if err != nil {
			return err
		}
		c.Admin = id
	case "token_denom":
		c.TokenDenom = value
	case "platform_fee":
		fee, err := strconv.ParseInt(value, 10, 64)
		if err != nil || fee < 0 {
			return ErrInvalidField
		}
		c.PlatformFee = fee
	case "treasury":
		id, err := ParseIdentity(value)
		if err != nil {
			return err
		}
		c.Treasury = id
	case "challenging_period":
		period, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ErrInvalidField
		}
		if period <= 0 {
			return ErrInvalidPeriod
		}
		c.ChallengingPeriod = period
	case "voting_period":
		period, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ErrInvalidField
		}
		if period <= 0 {
			return ErrInvalidPeriod
		}
		c.VotingPeriod = period
	case "min_bet":
		minBet, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ErrInvalidField
		}
		if minBet <= 0 {
			return ErrInvalidMinBet
		}
		c.MinBet = minBet
	case "whitelist_enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return ErrInvalidField
		}
		c.WhitelistEnabled = enabled
	default:
		return ErrInvalidField
	}
	return nil
}
