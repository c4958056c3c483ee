package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predexchange/predex/internal/domain"
)

type configStore struct {
	tx pgx.Tx
}

func (s *configStore) Get(ctx context.Context) (domain.ExchangeConfig, error) {
	const query = `
		SELECT admin, token_denom, platform_fee, treasury,
		       challenging_period, voting_period, min_bet, whitelist_enabled
		FROM exchange_config`

	var cfg domain.ExchangeConfig
	err := s.tx.QueryRow(ctx, query).Scan(
		&cfg.Admin, &cfg.TokenDenom, &cfg.PlatformFee, &cfg.Treasury,
		&cfg.ChallengingPeriod, &cfg.VotingPeriod, &cfg.MinBet, &cfg.WhitelistEnabled,
	)
	if err != nil {
		return domain.ExchangeConfig{}, mapNotFound(err)
	}
	return cfg, nil
}

func (s *configStore) Save(ctx context.Context, cfg domain.ExchangeConfig) error {
	const query = `
		INSERT INTO exchange_config (
			singleton, admin, token_denom, platform_fee, treasury,
			challenging_period, voting_period, min_bet, whitelist_enabled, updated_at
		) VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (singleton) DO UPDATE SET
			admin              = EXCLUDED.admin,
			token_denom        = EXCLUDED.token_denom,
			platform_fee       = EXCLUDED.platform_fee,
			treasury           = EXCLUDED.treasury,
			challenging_period = EXCLUDED.challenging_period,
			voting_period      = EXCLUDED.voting_period,
			min_bet            = EXCLUDED.min_bet,
			whitelist_enabled  = EXCLUDED.whitelist_enabled,
			updated_at         = NOW()`

	_, err := s.tx.Exec(ctx, query,
		cfg.Admin, cfg.TokenDenom, cfg.PlatformFee, cfg.Treasury,
		cfg.ChallengingPeriod, cfg.VotingPeriod, cfg.MinBet, cfg.WhitelistEnabled,
	)
	if err != nil {
		return fmt.Errorf("postgres: save config: %w", err)
	}
	return nil
}
