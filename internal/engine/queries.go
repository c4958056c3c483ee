package engine

import (
	"context"
	"fmt"

	"github.com/predexchange/predex/internal/domain"
)

// Config returns the current exchange configuration.
func (e *Engine) Config(ctx context.Context) (domain.ExchangeConfig, error) {
	var cfg domain.ExchangeConfig
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		cfg, err = tx.Config().Get(ctx)
		return err
	})
	if err != nil {
		return domain.ExchangeConfig{}, fmt.Errorf("engine: load config: %w", err)
	}
	return cfg, nil
}

// Market returns one market by id.
func (e *Engine) Market(ctx context.Context, id int64) (domain.Market, error) {
	var m domain.Market
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		m, err = tx.Markets().Get(ctx, id)
		return err
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("engine: load market %d: %w", id, err)
	}
	return m, nil
}

// Markets lists markets, optionally filtered by status, paginated ascending
// by id.
func (e *Engine) Markets(ctx context.Context, status *domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	var ms []domain.Market
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		ms, err = tx.Markets().List(ctx, status, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine: list markets: %w", err)
	}
	return ms, nil
}

// Order returns one order by id.
func (e *Engine) Order(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		o, err = tx.Orders().Get(ctx, id)
		return err
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("engine: load order %d: %w", id, err)
	}
	return o, nil
}

// UserOrders lists a user's orders, optionally narrowed to one market.
func (e *Engine) UserOrders(ctx context.Context, user domain.Identity, marketID *int64, opts domain.ListOpts) ([]domain.Order, error) {
	var os []domain.Order
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		os, err = tx.Orders().ListByUser(ctx, user, marketID, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine: list user orders: %w", err)
	}
	return os, nil
}

// OrderBook lists a market's open orders, optionally narrowed to one side.
func (e *Engine) OrderBook(ctx context.Context, marketID int64, side *domain.OrderSide, opts domain.ListOpts) ([]domain.Order, error) {
	var os []domain.Order
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		os, err = tx.Orders().ListBook(ctx, marketID, side, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine: list order book: %w", err)
	}
	return os, nil
}

// Bets lists matched bets, optionally narrowed by market and/or participant.
func (e *Engine) Bets(ctx context.Context, marketID *int64, user *domain.Identity, opts domain.ListOpts) ([]domain.MatchedBet, error) {
	var bs []domain.MatchedBet
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		bs, err = tx.Bets().List(ctx, marketID, user, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine: list bets: %w", err)
	}
	return bs, nil
}

// Proposal returns the market's resolution proposal, if any.
func (e *Engine) Proposal(ctx context.Context, marketID int64) (domain.ResolutionProposal, error) {
	var p domain.ResolutionProposal
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		p, err = tx.Proposals().Get(ctx, marketID)
		return err
	})
	if err != nil {
		return domain.ResolutionProposal{}, fmt.Errorf("engine: load proposal %d: %w", marketID, err)
	}
	return p, nil
}

// Dispute returns the market's dispute, if any.
func (e *Engine) Dispute(ctx context.Context, marketID int64) (domain.Dispute, error) {
	var d domain.Dispute
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		d, err = tx.Disputes().Get(ctx, marketID)
		return err
	})
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("engine: load dispute %d: %w", marketID, err)
	}
	return d, nil
}

// Votes returns a disputed market's individual votes and running tallies.
func (e *Engine) Votes(ctx context.Context, marketID int64) ([]domain.Vote, []domain.VoteTally, error) {
	var (
		votes   []domain.Vote
		tallies []domain.VoteTally
	)
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		if votes, err = tx.Votes().List(ctx, marketID); err != nil {
			return err
		}
		tallies, err = tx.Votes().Tallies(ctx, marketID)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("engine: load votes %d: %w", marketID, err)
	}
	return votes, tallies, nil
}

// IsWhitelisted reports whitelist membership for one identity.
func (e *Engine) IsWhitelisted(ctx context.Context, id domain.Identity) (bool, error) {
	var ok bool
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		ok, err = tx.Whitelist().Has(ctx, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("engine: check whitelist: %w", err)
	}
	return ok, nil
}

// WhitelistMembers lists whitelist members, paginated.
func (e *Engine) WhitelistMembers(ctx context.Context, opts domain.ListOpts) ([]domain.Identity, error) {
	var ids []domain.Identity
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		ids, err = tx.Whitelist().List(ctx, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine: list whitelist: %w", err)
	}
	return ids, nil
}

// Statistics aggregates matched volume and order count for one market.
func (e *Engine) Statistics(ctx context.Context, marketID int64) (domain.MarketStatistics, error) {
	var stats domain.MarketStatistics
	err := e.store.View(ctx, func(tx domain.StoreTx) error {
		m, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return err
		}
		volume, err := tx.Bets().VolumeByMarket(ctx, marketID)
		if err != nil {
			return err
		}
		count, err := tx.Orders().CountByMarket(ctx, marketID)
		if err != nil {
			return err
		}
		stats = domain.MarketStatistics{
			MarketID:    marketID,
			TotalVolume: volume,
			OrderCount:  count,
			Status:      m.Status,
		}
		return nil
	})
	if err != nil {
		return domain.MarketStatistics{}, fmt.Errorf("engine: market statistics %d: %w", marketID, err)
	}
	return stats, nil
}
