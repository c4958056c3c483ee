// Package engine implements the exchange core: the market lifecycle state
// machine, the back/lay matching engine, escrow and settlement, and the
// dispute resolution flow. Every operation runs as one atomic transaction
// over the shared store: it validates fully, applies its state transition,
// queues any transfer instructions, and either commits everything or
// nothing.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
)

// Engine executes exchange operations against the transactional store.
// Calls are serialized by the host; the engine itself keeps no state between
// calls.
type Engine struct {
	store  domain.Store
	clock  domain.Clock
	logger *slog.Logger
}

// New creates an Engine.
func New(store domain.Store, clock domain.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		clock:  clock,
		logger: logger.With(slog.String("component", "engine")),
	}
}

// now returns the host clock reading as unix seconds.
func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}

// Bootstrap writes the initial exchange config. It refuses to overwrite an
// existing config so that restarts are harmless.
func (e *Engine) Bootstrap(ctx context.Context, cfg domain.ExchangeConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine: bootstrap config: %w", err)
	}
	return e.store.Exec(ctx, func(tx domain.StoreTx) error {
		if _, err := tx.Config().Get(ctx); err == nil {
			return nil
		}
		if err := tx.Config().Save(ctx, cfg); err != nil {
			return fmt.Errorf("engine: save config: %w", err)
		}
		e.logger.InfoContext(ctx, "exchange config bootstrapped",
			slog.String("admin", string(cfg.Admin)),
			slog.String("token_denom", cfg.TokenDenom),
			slog.Int64("min_bet", cfg.MinBet),
		)
		return nil
	})
}

// queueTransfer records one transfer instruction in the transaction and
// appends it to the result list.
func queueTransfer(ctx context.Context, tx domain.StoreTx, out *[]domain.Transfer, t domain.Transfer) error {
	if err := tx.Transfers().Queue(ctx, t); err != nil {
		return fmt.Errorf("engine: queue transfer to %s: %w", t.To, err)
	}
	*out = append(*out, t)
	return nil
}
