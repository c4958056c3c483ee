package engine

import (
	"context"

	"github.com/predexchange/predex/internal/domain"
)

// requireAdmin gates an operation on the stored admin identity.
func requireAdmin(cfg domain.ExchangeConfig, caller domain.Identity) error {
	if caller != cfg.Admin {
		return domain.ErrUnauthorized
	}
	return nil
}

// requireWhitelisted gates an operation on whitelist membership.
func requireWhitelisted(ctx context.Context, tx domain.StoreTx, caller domain.Identity) error {
	ok, err := tx.Whitelist().Has(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotWhitelisted
	}
	return nil
}
