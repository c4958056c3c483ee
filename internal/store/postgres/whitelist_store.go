package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predexchange/predex/internal/domain"
)

type whitelistStore struct {
	tx pgx.Tx
}

func (s *whitelistStore) Has(ctx context.Context, id domain.Identity) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM whitelist WHERE identity = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check whitelist: %w", err)
	}
	return exists, nil
}

func (s *whitelistStore) Add(ctx context.Context, id domain.Identity) error {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO whitelist (identity) VALUES ($1) ON CONFLICT (identity) DO NOTHING`, id,
	)
	if err != nil {
		return fmt.Errorf("postgres: add to whitelist: %w", err)
	}
	return nil
}

func (s *whitelistStore) Remove(ctx context.Context, id domain.Identity) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM whitelist WHERE identity = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: remove from whitelist: %w", err)
	}
	return nil
}

func (s *whitelistStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Identity, error) {
	query := `SELECT identity FROM whitelist ORDER BY identity`
	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT $1`
		args = append(args, opts.Limit)
	}

	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list whitelist: %w", err)
	}
	defer rows.Close()

	var ids []domain.Identity
	for rows.Next() {
		var id domain.Identity
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan whitelist entry: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list whitelist rows: %w", err)
	}
	return ids, nil
}
