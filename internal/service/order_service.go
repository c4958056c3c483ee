package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
)

// Per-caller order placement limit.
const (
	orderRateLimit  = 10
	orderRateWindow = time.Second
)

// OrderService handles order placement and cancellation plus book reads.
type OrderService struct {
	engine  *engine.Engine
	store   domain.Store
	limiter domain.RateLimiter
	bus     domain.SignalBus
	cache   domain.MarketCache
	logger  *slog.Logger
}

// NewOrderService creates an OrderService with all required dependencies.
func NewOrderService(
	eng *engine.Engine,
	store domain.Store,
	limiter domain.RateLimiter,
	bus domain.SignalBus,
	cache domain.MarketCache,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		engine:  eng,
		store:   store,
		limiter: limiter,
		bus:     bus,
		cache:   cache,
		logger:  logger.With(slog.String("component", "order_service")),
	}
}

// Place rate-limits the caller, places the order through the engine, and
// announces placement, fills, and the implicit close of an expired market.
func (s *OrderService) Place(ctx context.Context, call domain.CallInfo, p engine.PlaceOrderParams) (engine.PlaceOrderResult, error) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "orders:"+string(call.Caller), orderRateLimit, orderRateWindow)
		if err != nil {
			return engine.PlaceOrderResult{}, fmt.Errorf("order_service: rate limiter: %w", err)
		}
		if !allowed {
			return engine.PlaceOrderResult{}, domain.ErrRateLimited
		}
	}

	res, err := s.engine.PlaceOrder(ctx, call, p)
	if err != nil {
		return engine.PlaceOrderResult{}, err
	}

	if res.MarketClosed {
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, p.MarketID); err != nil {
				s.logger.WarnContext(ctx, "market cache invalidate failed",
					slog.Int64("market_id", p.MarketID),
					slog.String("error", err.Error()),
				)
			}
		}
		publish(ctx, s.bus, s.logger, ChannelMarkets, map[string]any{
			"event":     "market_closed",
			"market_id": p.MarketID,
		})
		return res, nil
	}

	publish(ctx, s.bus, s.logger, ChannelOrders, map[string]any{
		"event":     "order_placed",
		"order_id":  res.OrderID,
		"market_id": p.MarketID,
		"side":      string(p.Side),
		"matched":   res.MatchedAmount,
	})
	for _, bet := range res.Bets {
		publish(ctx, s.bus, s.logger, ChannelOrders, map[string]any{
			"event":     "orders_matched",
			"bet_id":    bet.ID,
			"market_id": bet.MarketID,
			"amount":    bet.Amount,
			"odds":      bet.Odds,
		})
	}
	streamTransfers(ctx, s.bus, s.logger, res.Transfers)
	auditLog(ctx, s.store, s.logger, "order_placed", map[string]any{
		"order_id":  res.OrderID,
		"market_id": p.MarketID,
		"caller":    string(call.Caller),
		"side":      string(p.Side),
		"amount":    p.Amount,
		"odds":      p.Odds,
		"matched":   res.MatchedAmount,
	})
	return res, nil
}

// Cancel cancels the caller's order and announces the refund.
func (s *OrderService) Cancel(ctx context.Context, call domain.CallInfo, orderID int64) (engine.CancelOrderResult, error) {
	res, err := s.engine.CancelOrder(ctx, call, orderID)
	if err != nil {
		return engine.CancelOrderResult{}, err
	}

	publish(ctx, s.bus, s.logger, ChannelOrders, map[string]any{
		"event":    "order_canceled",
		"order_id": orderID,
		"refund":   res.RefundAmount,
	})
	streamTransfers(ctx, s.bus, s.logger, res.Transfers)
	auditLog(ctx, s.store, s.logger, "order_canceled", map[string]any{
		"order_id": orderID,
		"caller":   string(call.Caller),
		"refund":   res.RefundAmount,
	})
	return res, nil
}

// Get returns one order.
func (s *OrderService) Get(ctx context.Context, id int64) (domain.Order, error) {
	return s.engine.Order(ctx, id)
}

// ListByUser returns the caller's orders, optionally narrowed to one market.
func (s *OrderService) ListByUser(ctx context.Context, user domain.Identity, marketID *int64, opts domain.ListOpts) ([]domain.Order, error) {
	return s.engine.UserOrders(ctx, user, marketID, opts)
}

// Book returns the open order book for a market.
func (s *OrderService) Book(ctx context.Context, marketID int64, side *domain.OrderSide, opts domain.ListOpts) ([]domain.Order, error) {
	return s.engine.OrderBook(ctx, marketID, side, opts)
}

// Bets returns matched bets filtered by market and/or participant.
func (s *OrderService) Bets(ctx context.Context, marketID *int64, user *domain.Identity, opts domain.ListOpts) ([]domain.MatchedBet, error) {
	return s.engine.Bets(ctx, marketID, user, opts)
}
