package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/predexchange/predex/internal/domain"
)

// matchOrder crosses the incoming order against resting orders on the
// opposite side of the same option. Candidates are scanned in price-time
// priority: backs match the lowest lay odds first, lays match the highest
// back odds first, ties broken by age then id. A candidate at worse odds is
// skipped rather than ending the scan, because the book is per-option and
// worse-priced orders may be interleaved with matchable ones.
//
// Each match executes at the resting order's odds and produces one bet. The
// incoming order is mutated in place and persisted with its final status.
func (e *Engine) matchOrder(ctx context.Context, tx domain.StoreTx, now int64, order *domain.Order) ([]domain.MatchedBet, error) {
	opposite := domain.OrderSideLay
	if order.Side == domain.OrderSideLay {
		opposite = domain.OrderSideBack
	}

	candidates, err := tx.Orders().ListMatchable(ctx, order.MarketID, order.OptionID, opposite)
	if err != nil {
		return nil, fmt.Errorf("engine: list matchable orders: %w", err)
	}

	// Stable sort keeps insertion (id) order for candidates with equal odds
	// and timestamp, which makes fills deterministic.
	slices.SortStableFunc(candidates, func(a, b domain.Order) int {
		var byOdds int
		if order.Side == domain.OrderSideBack {
			byOdds = cmp.Compare(a.Odds, b.Odds) // cheapest lay first
		} else {
			byOdds = cmp.Compare(b.Odds, a.Odds) // highest back first
		}
		if byOdds != 0 {
			return byOdds
		}
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	var bets []domain.MatchedBet
	for _, cand := range candidates {
		if order.Remaining() == 0 {
			break
		}
		if !oddsCross(order.Side, order.Odds, cand.Odds) {
			continue
		}

		matched := min(order.Remaining(), cand.Remaining())
		if matched == 0 {
			continue
		}

		betID, err := tx.Bets().NextID(ctx)
		if err != nil {
			return nil, fmt.Errorf("engine: next bet id: %w", err)
		}
		bet := domain.MatchedBet{
			ID:        betID,
			MarketID:  order.MarketID,
			OptionID:  order.OptionID,
			Amount:    matched,
			Odds:      cand.Odds,
			Timestamp: now,
		}
		if order.Side == domain.OrderSideBack {
			bet.BackUser = order.Creator
			bet.LayUser = cand.Creator
		} else {
			bet.BackUser = cand.Creator
			bet.LayUser = order.Creator
		}
		if err := tx.Bets().Create(ctx, bet); err != nil {
			return nil, fmt.Errorf("engine: create bet: %w", err)
		}
		bets = append(bets, bet)

		order.FilledAmount += matched
		cand.FilledAmount += matched
		if cand.Remaining() == 0 {
			cand.Status = domain.OrderStatusFilled
		} else {
			cand.Status = domain.OrderStatusPartiallyFilled
		}
		if err := tx.Orders().Update(ctx, cand); err != nil {
			return nil, fmt.Errorf("engine: update matched order %d: %w", cand.ID, err)
		}
	}

	switch {
	case order.Remaining() == 0:
		order.Status = domain.OrderStatusFilled
	case order.FilledAmount > 0:
		order.Status = domain.OrderStatusPartiallyFilled
	default:
		order.Status = domain.OrderStatusOpen
	}
	if err := tx.Orders().Update(ctx, *order); err != nil {
		return nil, fmt.Errorf("engine: update order %d: %w", order.ID, err)
	}
	return bets, nil
}

// oddsCross reports whether an incoming order at the given odds accepts a
// resting candidate's odds. A back takes equal or cheaper lays; a lay takes
// equal or higher backs.
func oddsCross(side domain.OrderSide, incoming, resting int64) bool {
	if side == domain.OrderSideBack {
		return incoming <= resting
	}
	return incoming >= resting
}
