package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predexchange/predex/internal/domain"
)

type marketStore struct {
	tx pgx.Tx
}

const marketColumns = `
	id, creator, question, description, options, category,
	start_time, end_time, status, resolution_bond, resolution_reward, result`

func (s *marketStore) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, s.tx, "markets")
}

func (s *marketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, creator, question, description, options, category,
			start_time, end_time, status, resolution_bond, resolution_reward, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.tx.Exec(ctx, query,
		m.ID, m.Creator, m.Question, m.Description, m.Options, m.Category,
		m.StartTime, m.EndTime, string(m.Status), m.ResolutionBond, m.ResolutionReward, m.Result,
	)
	if err != nil {
		return fmt.Errorf("postgres: create market %d: %w", m.ID, err)
	}
	return nil
}

func (s *marketStore) Get(ctx context.Context, id int64) (domain.Market, error) {
	query := `SELECT` + marketColumns + ` FROM markets WHERE id = $1`

	m, err := scanMarket(s.tx.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Market{}, mapNotFound(err)
	}
	return m, nil
}

func (s *marketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			question = $2, description = $3, options = $4, category = $5,
			start_time = $6, end_time = $7, status = $8,
			resolution_bond = $9, resolution_reward = $10, result = $11,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.tx.Exec(ctx, query,
		m.ID, m.Question, m.Description, m.Options, m.Category,
		m.StartTime, m.EndTime, string(m.Status),
		m.ResolutionBond, m.ResolutionReward, m.Result,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *marketStore) List(ctx context.Context, status *domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT` + marketColumns + ` FROM markets WHERE id > $1`
	args := []any{opts.StartAfter}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY id`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}

	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.ID, &m.Creator, &m.Question, &m.Description, &m.Options, &m.Category,
		&m.StartTime, &m.EndTime, &m.Status, &m.ResolutionBond, &m.ResolutionReward, &m.Result,
	)
	return m, err
}
