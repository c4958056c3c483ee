package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predexchange/predex/internal/domain"
)

type betStore struct {
	tx pgx.Tx
}

const betColumns = `
	id, market_id, option_id, amount, odds, matched_at, back_user, lay_user, redeemed`

func (s *betStore) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, s.tx, "bets")
}

func (s *betStore) Create(ctx context.Context, b domain.MatchedBet) error {
	const query = `
		INSERT INTO bets (
			id, market_id, option_id, amount, odds,
			matched_at, back_user, lay_user, redeemed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.tx.Exec(ctx, query,
		b.ID, b.MarketID, b.OptionID, b.Amount, b.Odds,
		b.Timestamp, b.BackUser, b.LayUser, b.Redeemed,
	)
	if err != nil {
		return fmt.Errorf("postgres: create bet %d: %w", b.ID, err)
	}
	return nil
}

func (s *betStore) Get(ctx context.Context, id int64) (domain.MatchedBet, error) {
	query := `SELECT` + betColumns + ` FROM bets WHERE id = $1`

	b, err := scanBet(s.tx.QueryRow(ctx, query, id))
	if err != nil {
		return domain.MatchedBet{}, mapNotFound(err)
	}
	return b, nil
}

func (s *betStore) Update(ctx context.Context, b domain.MatchedBet) error {
	const query = `UPDATE bets SET redeemed = $2 WHERE id = $1`

	tag, err := s.tx.Exec(ctx, query, b.ID, b.Redeemed)
	if err != nil {
		return fmt.Errorf("postgres: update bet %d: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *betStore) ListUnredeemed(ctx context.Context, marketID int64) ([]domain.MatchedBet, error) {
	query := `SELECT` + betColumns + `
		FROM bets WHERE market_id = $1 AND NOT redeemed ORDER BY id`

	return s.list(ctx, query, marketID)
}

func (s *betStore) List(ctx context.Context, marketID *int64, user *domain.Identity, opts domain.ListOpts) ([]domain.MatchedBet, error) {
	query := `SELECT` + betColumns + ` FROM bets WHERE id > $1`
	args := []any{opts.StartAfter}

	if marketID != nil {
		query += fmt.Sprintf(` AND market_id = $%d`, len(args)+1)
		args = append(args, *marketID)
	}
	if user != nil {
		query += fmt.Sprintf(` AND (back_user = $%d OR lay_user = $%d)`, len(args)+1, len(args)+1)
		args = append(args, *user)
	}
	query += ` ORDER BY id`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}
	return s.list(ctx, query, args...)
}

func (s *betStore) VolumeByMarket(ctx context.Context, marketID int64) (int64, error) {
	var vol int64
	err := s.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM bets WHERE market_id = $1`,
		marketID,
	).Scan(&vol)
	if err != nil {
		return 0, fmt.Errorf("postgres: market volume: %w", err)
	}
	return vol, nil
}

func (s *betStore) list(ctx context.Context, query string, args ...any) ([]domain.MatchedBet, error) {
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.MatchedBet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bets rows: %w", err)
	}
	return bets, nil
}

func scanBet(row pgx.Row) (domain.MatchedBet, error) {
	var b domain.MatchedBet
	err := row.Scan(
		&b.ID, &b.MarketID, &b.OptionID, &b.Amount, &b.Odds,
		&b.Timestamp, &b.BackUser, &b.LayUser, &b.Redeemed,
	)
	return b, err
}
