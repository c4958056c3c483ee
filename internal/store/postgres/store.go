package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predexchange/predex/internal/domain"
)

// Store implements domain.Store. Exec runs the callback inside a
// serializable transaction so that concurrent order placements cannot
// double-match a resting order; serialization failures surface to the caller
// for retry.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on the client's connection pool.
func NewStore(client *Client) *Store {
	return &Store{pool: client.Pool()}
}

// Exec implements domain.Store.
func (s *Store) Exec(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&storeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// View implements domain.Store with a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("postgres: begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	return fn(&storeTx{tx: tx})
}

type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) Config() domain.ConfigStore       { return &configStore{tx: t.tx} }
func (t *storeTx) Markets() domain.MarketStore      { return &marketStore{tx: t.tx} }
func (t *storeTx) Orders() domain.OrderStore        { return &orderStore{tx: t.tx} }
func (t *storeTx) Bets() domain.BetStore            { return &betStore{tx: t.tx} }
func (t *storeTx) Proposals() domain.ProposalStore  { return &proposalStore{tx: t.tx} }
func (t *storeTx) Disputes() domain.DisputeStore    { return &disputeStore{tx: t.tx} }
func (t *storeTx) Votes() domain.VoteStore          { return &voteStore{tx: t.tx} }
func (t *storeTx) Whitelist() domain.WhitelistStore { return &whitelistStore{tx: t.tx} }
func (t *storeTx) Transfers() domain.TransferStore  { return &transferStore{tx: t.tx} }
func (t *storeTx) Audit() domain.AuditStore         { return &auditStore{tx: t.tx} }

// mapNotFound converts pgx's no-rows error into the domain sentinel.
func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// nextID allocates the next id from the named id_counters row. The
// increment happens inside the caller's transaction, so a rollback
// releases the id and committed ids stay gap-free.
func nextID(ctx context.Context, tx pgx.Tx, counter string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		"UPDATE id_counters SET value = value + 1 WHERE name = $1 RETURNING value",
		counter,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: next %s id: %w", counter, err)
	}
	return id, nil
}
