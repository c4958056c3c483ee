package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predexchange/predex/internal/domain"
)

type orderStore struct {
	tx pgx.Tx
}

const orderColumns = `
	id, market_id, creator, option_id, side, amount, odds, filled_amount, status, placed_at`

func (s *orderStore) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, s.tx, "orders")
}

func (s *orderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, market_id, creator, option_id, side,
			amount, odds, filled_amount, status, placed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.tx.Exec(ctx, query,
		o.ID, o.MarketID, o.Creator, o.OptionID, string(o.Side),
		o.Amount, o.Odds, o.FilledAmount, string(o.Status), o.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %d: %w", o.ID, err)
	}
	return nil
}

func (s *orderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(s.tx.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Order{}, mapNotFound(err)
	}
	return o, nil
}

func (s *orderStore) Update(ctx context.Context, o domain.Order) error {
	const query = `
		UPDATE orders SET amount = $2, filled_amount = $3, status = $4
		WHERE id = $1`

	tag, err := s.tx.Exec(ctx, query, o.ID, o.Amount, o.FilledAmount, string(o.Status))
	if err != nil {
		return fmt.Errorf("postgres: update order %d: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *orderStore) ListOpen(ctx context.Context, marketID int64) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE market_id = $1 AND status IN ('open', 'partially_filled')
		ORDER BY id`

	return s.list(ctx, query, marketID)
}

func (s *orderStore) ListMatchable(ctx context.Context, marketID int64, optionID int, side domain.OrderSide) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE market_id = $1 AND option_id = $2 AND side = $3
		  AND status IN ('open', 'partially_filled')
		  AND amount > filled_amount
		ORDER BY id`

	return s.list(ctx, query, marketID, optionID, string(side))
}

func (s *orderStore) ListByUser(ctx context.Context, user domain.Identity, marketID *int64, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE creator = $1 AND id > $2`
	args := []any{user, opts.StartAfter}

	if marketID != nil {
		query += ` AND market_id = $3`
		args = append(args, *marketID)
	}
	query += ` ORDER BY id`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}
	return s.list(ctx, query, args...)
}

func (s *orderStore) ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE market_id = $1 AND id > $2 ORDER BY id`
	args := []any{marketID, opts.StartAfter}
	if opts.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, opts.Limit)
	}
	return s.list(ctx, query, args...)
}

func (s *orderStore) ListBook(ctx context.Context, marketID int64, side *domain.OrderSide, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE market_id = $1 AND id > $2
		  AND status IN ('open', 'partially_filled')
		  AND amount > filled_amount`
	args := []any{marketID, opts.StartAfter}

	if side != nil {
		query += ` AND side = $3`
		args = append(args, string(*side))
	}
	query += ` ORDER BY id`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}
	return s.list(ctx, query, args...)
}

func (s *orderStore) CountByMarket(ctx context.Context, marketID int64) (int64, error) {
	var n int64
	err := s.tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE market_id = $1`, marketID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count orders: %w", err)
	}
	return n, nil
}

func (s *orderStore) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list orders rows: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.MarketID, &o.Creator, &o.OptionID, &o.Side,
		&o.Amount, &o.Odds, &o.FilledAmount, &o.Status, &o.Timestamp,
	)
	return o, err
}
