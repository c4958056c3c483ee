package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
)

// CreateMarketParams are the caller-supplied market attributes.
type CreateMarketParams struct {
	Category         string
	Question         string
	Description      string
	Options          []string
	StartTime        int64
	EndTime          int64
	ResolutionBond   int64
	ResolutionReward int64
}

// CreateMarketResult reports the id assigned to the new market.
type CreateMarketResult struct {
	MarketID int64
}

// CreateMarket validates and persists a new Active market. The exact
// resolution reward must be attached in the settlement denomination; it is
// held until resolution pays it out.
func (e *Engine) CreateMarket(ctx context.Context, call domain.CallInfo, p CreateMarketParams) (CreateMarketResult, error) {
	var res CreateMarketResult
	now := e.now()

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}

		if p.ResolutionBond == 0 || p.ResolutionBond < cfg.MinBet {
			return domain.ErrInvalidBond
		}
		if p.StartTime <= now {
			return domain.ErrInvalidTimeRange
		}
		if cfg.WhitelistEnabled {
			if err := requireWhitelisted(ctx, tx, call.Caller); err != nil {
				return err
			}
		}
		if len(p.Options) == 0 || len(p.Options) > domain.MaxMarketOptions {
			return domain.ErrInvalidOptions
		}
		if p.StartTime >= p.EndTime {
			return domain.ErrInvalidTimeRange
		}
		if err := domain.ValidateQuestion(p.Question); err != nil {
			return err
		}
		if err := domain.ValidateDescription(p.Description); err != nil {
			return err
		}

		attached := call.Attached(cfg.TokenDenom)
		if attached == 0 {
			return domain.ErrNoFunds
		}
		if attached != p.ResolutionReward {
			return domain.ErrInsufficientFunds
		}

		id, err := tx.Markets().NextID(ctx)
		if err != nil {
			return fmt.Errorf("engine: next market id: %w", err)
		}
		market := domain.Market{
			ID:               id,
			Creator:          call.Caller,
			Question:         p.Question,
			Description:      p.Description,
			Options:          p.Options,
			Category:         p.Category,
			StartTime:        p.StartTime,
			EndTime:          p.EndTime,
			Status:           domain.MarketStatusActive,
			ResolutionBond:   p.ResolutionBond,
			ResolutionReward: p.ResolutionReward,
		}
		if err := tx.Markets().Create(ctx, market); err != nil {
			return fmt.Errorf("engine: create market: %w", err)
		}
		res.MarketID = id
		return nil
	})
	if err != nil {
		return CreateMarketResult{}, err
	}

	e.logger.InfoContext(ctx, "market created",
		slog.Int64("market_id", res.MarketID),
		slog.String("creator", string(call.Caller)),
	)
	return res, nil
}

// CancelMarketResult lists the refunds emitted by the cancellation.
type CancelMarketResult struct {
	MarketID  int64
	Transfers []domain.Transfer
}

// CancelMarket moves an Active market to Canceled and unwinds everything:
// open order remainders are refunded and every unredeemed matched bet is
// returned to both sides. Only the admin or the market's creator may cancel.
func (e *Engine) CancelMarket(ctx context.Context, call domain.CallInfo, marketID int64) (CancelMarketResult, error) {
	res := CancelMarketResult{MarketID: marketID}

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		market, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}

		if call.Caller != cfg.Admin && call.Caller != market.Creator {
			return domain.ErrUnauthorized
		}
		if market.Status != domain.MarketStatusActive {
			return domain.ErrInvalidMarketState
		}

		market.Status = domain.MarketStatusCanceled
		if err := tx.Markets().Update(ctx, market); err != nil {
			return fmt.Errorf("engine: update market %d: %w", marketID, err)
		}

		transfers, err := e.refundAllBets(ctx, tx, cfg, marketID)
		if err != nil {
			return err
		}
		res.Transfers = transfers
		return nil
	})
	if err != nil {
		return CancelMarketResult{}, err
	}

	e.logger.InfoContext(ctx, "market canceled",
		slog.Int64("market_id", marketID),
		slog.Int("refunds", len(res.Transfers)),
	)
	return res, nil
}

// CloseMarketResult lists the unfilled-remainder refunds emitted by the
// close.
type CloseMarketResult struct {
	MarketID  int64
	Transfers []domain.Transfer
}

// CloseMarket moves an Active market past its end time to Closed. Unfilled
// order remainders are refunded; matched bets stay outstanding until the
// market resolves. Admin only.
func (e *Engine) CloseMarket(ctx context.Context, call domain.CallInfo, marketID int64) (CloseMarketResult, error) {
	res := CloseMarketResult{MarketID: marketID}
	now := e.now()

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		market, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}

		if err := requireAdmin(cfg, call.Caller); err != nil {
			return err
		}
		if market.Status != domain.MarketStatusActive {
			return domain.ErrInvalidMarketState
		}
		if now < market.EndTime {
			return domain.ErrMarketNotEnded
		}

		market.Status = domain.MarketStatusClosed
		if err := tx.Markets().Update(ctx, market); err != nil {
			return fmt.Errorf("engine: update market %d: %w", marketID, err)
		}

		transfers, err := e.refundUnmatchedOrders(ctx, tx, cfg, marketID)
		if err != nil {
			return err
		}
		res.Transfers = transfers
		return nil
	})
	if err != nil {
		return CloseMarketResult{}, err
	}

	e.logger.InfoContext(ctx, "market closed",
		slog.Int64("market_id", marketID),
		slog.Int("refunds", len(res.Transfers)),
	)
	return res, nil
}
