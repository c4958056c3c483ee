package service

import (
	"context"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
)

// AdminService handles config updates, whitelist management, the audit log
// read surface, and operator inspection of the transfer stream.
type AdminService struct {
	engine *engine.Engine
	store  domain.Store
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewAdminService creates an AdminService. bus may be nil in local mode.
func NewAdminService(eng *engine.Engine, store domain.Store, bus domain.SignalBus, logger *slog.Logger) *AdminService {
	return &AdminService{
		engine: eng,
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "admin_service")),
	}
}

// Config returns the current exchange configuration.
func (s *AdminService) Config(ctx context.Context) (domain.ExchangeConfig, error) {
	return s.engine.Config(ctx)
}

// UpdateConfig sets one named config field.
func (s *AdminService) UpdateConfig(ctx context.Context, call domain.CallInfo, field, value string) error {
	if err := s.engine.UpdateConfig(ctx, call, field, value); err != nil {
		return err
	}
	auditLog(ctx, s.store, s.logger, "config_updated", map[string]any{
		"field": field,
		"value": value,
	})
	return nil
}

// AddToWhitelist whitelists an identity.
func (s *AdminService) AddToWhitelist(ctx context.Context, call domain.CallInfo, id domain.Identity) error {
	if err := s.engine.AddToWhitelist(ctx, call, id); err != nil {
		return err
	}
	auditLog(ctx, s.store, s.logger, "whitelist_added", map[string]any{
		"identity": string(id),
	})
	return nil
}

// RemoveFromWhitelist revokes an identity's whitelist membership.
func (s *AdminService) RemoveFromWhitelist(ctx context.Context, call domain.CallInfo, id domain.Identity) error {
	if err := s.engine.RemoveFromWhitelist(ctx, call, id); err != nil {
		return err
	}
	auditLog(ctx, s.store, s.logger, "whitelist_removed", map[string]any{
		"identity": string(id),
	})
	return nil
}

// IsWhitelisted reports one identity's membership.
func (s *AdminService) IsWhitelisted(ctx context.Context, id domain.Identity) (bool, error) {
	return s.engine.IsWhitelisted(ctx, id)
}

// WhitelistMembers lists whitelist members.
func (s *AdminService) WhitelistMembers(ctx context.Context, opts domain.ListOpts) ([]domain.Identity, error) {
	return s.engine.WhitelistMembers(ctx, opts)
}

// TransferLog reads queued transfer instructions from the durable settlement
// stream, starting after lastID. An empty lastID reads from the beginning.
// Local mode has no stream, so the log is always empty there.
func (s *AdminService) TransferLog(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	if s.bus == nil {
		return nil, nil
	}
	if lastID == "" {
		lastID = "0"
	}
	msgs, err := s.bus.StreamRead(ctx, StreamTransfers, lastID, count)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// AuditLog returns audit entries ascending by id.
func (s *AdminService) AuditLog(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		entries, err = tx.Audit().List(ctx, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
