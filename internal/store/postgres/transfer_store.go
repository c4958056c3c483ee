package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predexchange/predex/internal/domain"
)

type transferStore struct {
	tx pgx.Tx
}

func (s *transferStore) Queue(ctx context.Context, t domain.Transfer) error {
	const query = `INSERT INTO transfer_queue (recipient, denom, amount) VALUES ($1, $2, $3)`

	_, err := s.tx.Exec(ctx, query, t.To, t.Denom, t.Amount)
	if err != nil {
		return fmt.Errorf("postgres: queue transfer: %w", err)
	}
	return nil
}
