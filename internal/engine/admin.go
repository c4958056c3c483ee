package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
)

// UpdateConfig sets one named config field to a new value. Only the admin
// may call it; updating the admin field hands control to the new identity
// immediately.
func (e *Engine) UpdateConfig(ctx context.Context, call domain.CallInfo, field, value string) error {
	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		if err := requireAdmin(cfg, call.Caller); err != nil {
			return err
		}
		if err := cfg.SetField(field, value); err != nil {
			return err
		}
		if err := tx.Config().Save(ctx, cfg); err != nil {
			return fmt.Errorf("engine: save config: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "config updated",
		slog.String("field", field),
		slog.String("value", value),
	)
	return nil
}

// AddToWhitelist makes an identity eligible for whitelist-gated operations.
// Admin only.
func (e *Engine) AddToWhitelist(ctx context.Context, call domain.CallInfo, id domain.Identity) error {
	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		if err := requireAdmin(cfg, call.Caller); err != nil {
			return err
		}
		ok, err := tx.Whitelist().Has(ctx, id)
		if err != nil {
			return fmt.Errorf("engine: check whitelist: %w", err)
		}
		if ok {
			return domain.ErrAlreadyWhitelisted
		}
		if err := tx.Whitelist().Add(ctx, id); err != nil {
			return fmt.Errorf("engine: add to whitelist: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "identity whitelisted", slog.String("identity", string(id)))
	return nil
}

// RemoveFromWhitelist revokes whitelist membership. Removing an identity
// that is not on the list is a no-op. Admin only.
func (e *Engine) RemoveFromWhitelist(ctx context.Context, call domain.CallInfo, id domain.Identity) error {
	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		if err := requireAdmin(cfg, call.Caller); err != nil {
			return err
		}
		if err := tx.Whitelist().Remove(ctx, id); err != nil {
			return fmt.Errorf("engine: remove from whitelist: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "identity removed from whitelist", slog.String("identity", string(id)))
	return nil
}
