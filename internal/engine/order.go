package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
)

// PlaceOrderParams are the caller-supplied order attributes.
type PlaceOrderParams struct {
	MarketID int64
	OptionID int
	Side     domain.OrderSide
	Amount   int64
	Odds     int64
}

// PlaceOrderResult reports the outcome of an order placement. When the
// market's end time has already passed, MarketClosed is true and no order is
// created: the market is transitioned to Closed and the caller's attempt is
// reported as a notice rather than an error, so a stale order does not abort
// the caller's broader transaction.
type PlaceOrderResult struct {
	OrderID       int64
	MarketClosed  bool
	MatchedAmount int64
	Bets          []domain.MatchedBet
	Transfers     []domain.Transfer
}

// PlaceOrder validates collateral, persists the order, and immediately runs
// the matching pass against the opposite side of the book. Any attached
// funds beyond the required collateral are returned in the same response.
func (e *Engine) PlaceOrder(ctx context.Context, call domain.CallInfo, p PlaceOrderParams) (PlaceOrderResult, error) {
	var res PlaceOrderResult
	now := e.now()

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		market, err := tx.Markets().Get(ctx, p.MarketID)
		if err != nil {
			return fmt.Errorf("engine: load market %d: %w", p.MarketID, err)
		}

		if market.Status != domain.MarketStatusActive {
			return domain.ErrMarketNotActive
		}

		// Lazy expiry: the first order attempt after the end time closes the
		// market instead of failing.
		if now > market.EndTime {
			market.Status = domain.MarketStatusClosed
			if err := tx.Markets().Update(ctx, market); err != nil {
				return fmt.Errorf("engine: close expired market %d: %w", p.MarketID, err)
			}
			res.MarketClosed = true
			return nil
		}

		if p.Amount < cfg.MinBet {
			return domain.ErrBetTooSmall
		}
		if p.Amount > domain.MaxOrderAmount {
			return domain.ErrBetTooLarge
		}
		if !domain.ValidOdds(p.Odds) {
			return domain.ErrInvalidOdds
		}
		if p.OptionID < 0 || p.OptionID >= len(market.Options) {
			return domain.ErrInvalidOption
		}
		if p.Side != domain.OrderSideBack && p.Side != domain.OrderSideLay {
			return domain.ErrInvalidOdds
		}

		required := domain.RequiredCollateral(p.Side, p.Amount, p.Odds)
		if p.Side == domain.OrderSideLay && required == 0 {
			// Odds of 100 leave a lay order with no liability to escrow.
			return domain.ErrInvalidOdds
		}

		attached := call.Attached(cfg.TokenDenom)
		if attached == 0 {
			return domain.ErrNoFunds
		}
		if attached < required {
			return domain.ErrInsufficientFunds
		}

		id, err := tx.Orders().NextID(ctx)
		if err != nil {
			return fmt.Errorf("engine: next order id: %w", err)
		}
		order := domain.Order{
			ID:        id,
			MarketID:  p.MarketID,
			Creator:   call.Caller,
			OptionID:  p.OptionID,
			Side:      p.Side,
			Amount:    p.Amount,
			Odds:      p.Odds,
			Status:    domain.OrderStatusOpen,
			Timestamp: now,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("engine: create order: %w", err)
		}

		bets, err := e.matchOrder(ctx, tx, now, &order)
		if err != nil {
			return err
		}
		res.OrderID = id
		res.MatchedAmount = order.FilledAmount
		res.Bets = bets

		if excess := attached - required; excess > 0 {
			t := domain.Transfer{To: call.Caller, Denom: cfg.TokenDenom, Amount: excess}
			if err := queueTransfer(ctx, tx, &res.Transfers, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PlaceOrderResult{}, err
	}

	if res.MarketClosed {
		e.logger.InfoContext(ctx, "order rejected, market expired and closed",
			slog.Int64("market_id", p.MarketID),
		)
		return res, nil
	}
	e.logger.InfoContext(ctx, "order placed",
		slog.Int64("order_id", res.OrderID),
		slog.Int64("market_id", p.MarketID),
		slog.String("side", string(p.Side)),
		slog.Int64("matched_amount", res.MatchedAmount),
		slog.Int("matched_bets", len(res.Bets)),
	)
	return res, nil
}

// CancelOrderResult reports the refunded remainder of a cancelled order.
type CancelOrderResult struct {
	OrderID      int64
	RefundAmount int64
	Transfers    []domain.Transfer
}

// CancelOrder cancels the caller's own Open/PartiallyFilled order, refunding
// the unfilled remainder using the same side-dependent collateral formula as
// placement. The order's amount collapses to its filled amount so that the
// unfilled portion is no longer counted anywhere.
func (e *Engine) CancelOrder(ctx context.Context, call domain.CallInfo, orderID int64) (CancelOrderResult, error) {
	res := CancelOrderResult{OrderID: orderID}

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return fmt.Errorf("engine: load order %d: %w", orderID, err)
		}

		if order.Creator != call.Caller {
			return domain.ErrUnauthorized
		}
		if order.Status != domain.OrderStatusOpen && order.Status != domain.OrderStatusPartiallyFilled {
			return domain.ErrOrderNotCancellable
		}

		refund := domain.RequiredCollateral(order.Side, order.Remaining(), order.Odds)

		order.Status = domain.OrderStatusCanceled
		order.Amount = order.FilledAmount
		if err := tx.Orders().Update(ctx, order); err != nil {
			return fmt.Errorf("engine: update order %d: %w", orderID, err)
		}

		if refund > 0 {
			t := domain.Transfer{To: order.Creator, Denom: cfg.TokenDenom, Amount: refund}
			if err := queueTransfer(ctx, tx, &res.Transfers, t); err != nil {
				return err
			}
		}
		res.RefundAmount = refund
		return nil
	})
	if err != nil {
		return CancelOrderResult{}, err
	}

	e.logger.InfoContext(ctx, "order cancelled",
		slog.Int64("order_id", orderID),
		slog.Int64("refund_amount", res.RefundAmount),
	)
	return res, nil
}
