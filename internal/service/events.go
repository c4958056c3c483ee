// Package service layers operational concerns over the exchange engine:
// per-caller rate limits, event publication on the signal bus, the durable
// transfer stream consumed by the external settler, market caching, and
// audit logging.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
)

// Signal bus channels and streams.
const (
	ChannelMarkets     = "markets"
	ChannelOrders      = "orders"
	ChannelResolutions = "resolutions"

	// StreamTransfers carries every queued transfer instruction in commit
	// order. The external settler tails it and moves real funds.
	StreamTransfers = "transfers"
)

// publish sends a JSON event on a pub/sub channel. Publication is best
// effort: the state change has already committed, so a bus failure is logged
// and swallowed.
func publish(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, event map[string]any) {
	if bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.WarnContext(ctx, "marshal event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// streamTransfers appends each transfer to the durable settlement stream.
// The transfer instructions are already committed in the store's queue, so
// the stream is a delivery channel, not the source of truth.
func streamTransfers(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, transfers []domain.Transfer) {
	if bus == nil {
		return
	}
	for _, t := range transfers {
		payload, err := json.Marshal(map[string]any{
			"to":     string(t.To),
			"denom":  t.Denom,
			"amount": t.Amount,
		})
		if err != nil {
			logger.WarnContext(ctx, "marshal transfer failed", slog.String("error", err.Error()))
			continue
		}
		if err := bus.StreamAppend(ctx, StreamTransfers, payload); err != nil {
			logger.WarnContext(ctx, "stream transfer failed",
				slog.String("to", string(t.To)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// auditLog writes an audit entry in its own transaction, after the operation
// it describes has committed. Failures are logged and swallowed.
func auditLog(ctx context.Context, store domain.Store, logger *slog.Logger, event string, detail map[string]any) {
	err := store.Exec(ctx, func(tx domain.StoreTx) error {
		return tx.Audit().Log(ctx, event, detail)
	})
	if err != nil {
		logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
