package service

import (
	"context"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
)

// MarketService handles market lifecycle operations and market reads.
type MarketService struct {
	engine *engine.Engine
	store  domain.Store
	cache  domain.MarketCache
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	eng *engine.Engine,
	store domain.Store,
	cache domain.MarketCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		engine: eng,
		store:  store,
		cache:  cache,
		bus:    bus,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// Create creates a market and announces it.
func (s *MarketService) Create(ctx context.Context, call domain.CallInfo, p engine.CreateMarketParams) (engine.CreateMarketResult, error) {
	res, err := s.engine.CreateMarket(ctx, call, p)
	if err != nil {
		return engine.CreateMarketResult{}, err
	}

	publish(ctx, s.bus, s.logger, ChannelMarkets, map[string]any{
		"event":     "market_created",
		"market_id": res.MarketID,
		"creator":   string(call.Caller),
	})
	auditLog(ctx, s.store, s.logger, "market_created", map[string]any{
		"market_id": res.MarketID,
		"creator":   string(call.Caller),
		"question":  p.Question,
	})
	return res, nil
}

// Cancel cancels a market and refunds all open interest.
func (s *MarketService) Cancel(ctx context.Context, call domain.CallInfo, marketID int64) (engine.CancelMarketResult, error) {
	res, err := s.engine.CancelMarket(ctx, call, marketID)
	if err != nil {
		return engine.CancelMarketResult{}, err
	}
	s.invalidate(ctx, marketID)

	publish(ctx, s.bus, s.logger, ChannelMarkets, map[string]any{
		"event":     "market_canceled",
		"market_id": marketID,
	})
	streamTransfers(ctx, s.bus, s.logger, res.Transfers)
	auditLog(ctx, s.store, s.logger, "market_canceled", map[string]any{
		"market_id": marketID,
		"refunds":   len(res.Transfers),
	})
	return res, nil
}

// Close closes a market whose end time has passed.
func (s *MarketService) Close(ctx context.Context, call domain.CallInfo, marketID int64) (engine.CloseMarketResult, error) {
	res, err := s.engine.CloseMarket(ctx, call, marketID)
	if err != nil {
		return engine.CloseMarketResult{}, err
	}
	s.invalidate(ctx, marketID)

	publish(ctx, s.bus, s.logger, ChannelMarkets, map[string]any{
		"event":     "market_closed",
		"market_id": marketID,
	})
	streamTransfers(ctx, s.bus, s.logger, res.Transfers)
	auditLog(ctx, s.store, s.logger, "market_closed", map[string]any{
		"market_id": marketID,
		"refunds":   len(res.Transfers),
	})
	return res, nil
}

// Get returns one market, read through the cache.
func (s *MarketService) Get(ctx context.Context, id int64) (domain.Market, error) {
	if s.cache != nil {
		m, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "market cache read failed",
				slog.Int64("market_id", id),
				slog.String("error", err.Error()),
			)
		} else if ok {
			return m, nil
		}
	}

	m, err := s.engine.Market(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "market cache write failed",
				slog.Int64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return m, nil
}

// List returns markets, optionally filtered by status.
func (s *MarketService) List(ctx context.Context, status *domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	return s.engine.Markets(ctx, status, opts)
}

// Statistics returns aggregate activity for one market.
func (s *MarketService) Statistics(ctx context.Context, marketID int64) (domain.MarketStatistics, error) {
	return s.engine.Statistics(ctx, marketID)
}

func (s *MarketService) invalidate(ctx context.Context, marketID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "market cache invalidate failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}
