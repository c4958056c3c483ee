package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
)

// refundAllBets unwinds a canceled market: every Open/PartiallyFilled order
// has its unfilled-remainder collateral returned and is marked Canceled, and
// every unredeemed matched bet returns the stake to the back side and the
// liability to the lay side before being marked redeemed. This is the only
// path that unwinds already-matched bets.
func (e *Engine) refundAllBets(ctx context.Context, tx domain.StoreTx, cfg domain.ExchangeConfig, marketID int64) ([]domain.Transfer, error) {
	var transfers []domain.Transfer

	orders, err := tx.Orders().ListOpen(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("engine: list open orders for market %d: %w", marketID, err)
	}
	for _, order := range orders {
		refund := domain.RequiredCollateral(order.Side, order.Remaining(), order.Odds)
		if refund > 0 {
			t := domain.Transfer{To: order.Creator, Denom: cfg.TokenDenom, Amount: refund}
			if err := queueTransfer(ctx, tx, &transfers, t); err != nil {
				return nil, err
			}
		}
		order.Status = domain.OrderStatusCanceled
		order.Amount = order.FilledAmount
		if err := tx.Orders().Update(ctx, order); err != nil {
			return nil, fmt.Errorf("engine: cancel order %d: %w", order.ID, err)
		}
	}

	bets, err := tx.Bets().ListUnredeemed(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("engine: list unredeemed bets for market %d: %w", marketID, err)
	}
	for _, bet := range bets {
		back := domain.Transfer{To: bet.BackUser, Denom: cfg.TokenDenom, Amount: bet.Amount}
		if err := queueTransfer(ctx, tx, &transfers, back); err != nil {
			return nil, err
		}
		lay := domain.Transfer{To: bet.LayUser, Denom: cfg.TokenDenom, Amount: domain.LayCollateral(bet.Amount, bet.Odds)}
		if err := queueTransfer(ctx, tx, &transfers, lay); err != nil {
			return nil, err
		}
		bet.Redeemed = true
		if err := tx.Bets().Update(ctx, bet); err != nil {
			return nil, fmt.Errorf("engine: mark bet %d redeemed: %w", bet.ID, err)
		}
	}

	return transfers, nil
}

// refundUnmatchedOrders refunds only the unfilled remainders of
// Open/PartiallyFilled orders in the market. Matched bets are left
// outstanding for redemption after resolution.
func (e *Engine) refundUnmatchedOrders(ctx context.Context, tx domain.StoreTx, cfg domain.ExchangeConfig, marketID int64) ([]domain.Transfer, error) {
	var transfers []domain.Transfer

	orders, err := tx.Orders().ListOpen(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("engine: list open orders for market %d: %w", marketID, err)
	}
	for _, order := range orders {
		refund := domain.RequiredCollateral(order.Side, order.Remaining(), order.Odds)
		if refund > 0 {
			t := domain.Transfer{To: order.Creator, Denom: cfg.TokenDenom, Amount: refund}
			if err := queueTransfer(ctx, tx, &transfers, t); err != nil {
				return nil, err
			}
		}
		order.Status = domain.OrderStatusCanceled
		order.Amount = order.FilledAmount
		if err := tx.Orders().Update(ctx, order); err != nil {
			return nil, fmt.Errorf("engine: cancel order %d: %w", order.ID, err)
		}
	}

	return transfers, nil
}

// RedeemWinningsResult reports the payout of one matched bet.
type RedeemWinningsResult struct {
	BetID     int64
	Amount    int64
	Transfers []domain.Transfer
}

// RedeemWinnings pays out one matched bet on a resolved market. The winning
// side is determined by comparing the bet's option to the market result: a
// hit pays the back side stake x odds/100, a miss returns the stake to the
// lay side. The caller must be the winning identity, and a bet redeems at
// most once.
func (e *Engine) RedeemWinnings(ctx context.Context, call domain.CallInfo, betID int64) (RedeemWinningsResult, error) {
	res := RedeemWinningsResult{BetID: betID}

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		bet, err := tx.Bets().Get(ctx, betID)
		if err != nil {
			return fmt.Errorf("engine: load bet %d: %w", betID, err)
		}
		market, err := tx.Markets().Get(ctx, bet.MarketID)
		if err != nil {
			return fmt.Errorf("engine: load market %d: %w", bet.MarketID, err)
		}

		if market.Status != domain.MarketStatusResolved {
			return domain.ErrMarketNotResolved
		}
		if bet.Redeemed {
			return domain.ErrAlreadyRedeemed
		}

		backWins := market.Result != nil && bet.OptionID == *market.Result
		if backWins && bet.BackUser != call.Caller {
			return domain.ErrUnauthorized
		}
		if !backWins && bet.LayUser != call.Caller {
			return domain.ErrUnauthorized
		}

		winnings := bet.Amount
		if backWins {
			winnings = domain.BackPayout(bet.Amount, bet.Odds)
		}

		bet.Redeemed = true
		if err := tx.Bets().Update(ctx, bet); err != nil {
			return fmt.Errorf("engine: mark bet %d redeemed: %w", betID, err)
		}

		t := domain.Transfer{To: call.Caller, Denom: cfg.TokenDenom, Amount: winnings}
		if err := queueTransfer(ctx, tx, &res.Transfers, t); err != nil {
			return err
		}
		res.Amount = winnings
		return nil
	})
	if err != nil {
		return RedeemWinningsResult{}, err
	}

	e.logger.InfoContext(ctx, "winnings redeemed",
		slog.Int64("bet_id", betID),
		slog.Int64("amount", res.Amount),
		slog.String("recipient", string(call.Caller)),
	)
	return res, nil
}

// RedeemBondResult reports the bond payout on a resolved market.
type RedeemBondResult struct {
	MarketID  int64
	Amount    int64
	Transfers []domain.Transfer
}

// RedeemBond pays the market's resolution bond to the claimant who predicted
// correctly: the proposer when the result matches the proposal, otherwise
// the challenger. Requires a resolved market.
func (e *Engine) RedeemBond(ctx context.Context, call domain.CallInfo, marketID int64) (RedeemBondResult, error) {
	res := RedeemBondResult{MarketID: marketID}

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		market, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}
		proposal, err := tx.Proposals().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load proposal for market %d: %w", marketID, err)
		}

		if market.Status != domain.MarketStatusResolved {
			return domain.ErrMarketNotResolved
		}

		isProposer := call.Caller == proposal.Proposer
		isChallenger := false
		if dispute, err := tx.Disputes().Get(ctx, marketID); err == nil {
			isChallenger = call.Caller == dispute.Challenger
		}
		if !isProposer && !isChallenger {
			return domain.ErrUnauthorized
		}

		proposalWon := market.Result != nil && *market.Result == proposal.ProposedResult
		if isProposer && !proposalWon {
			return domain.ErrNotWinner
		}
		if !isProposer && proposalWon {
			return domain.ErrNotWinner
		}

		t := domain.Transfer{To: call.Caller, Denom: cfg.TokenDenom, Amount: market.ResolutionBond}
		if err := queueTransfer(ctx, tx, &res.Transfers, t); err != nil {
			return err
		}
		res.Amount = market.ResolutionBond
		return nil
	})
	if err != nil {
		return RedeemBondResult{}, err
	}

	e.logger.InfoContext(ctx, "bond redeemed",
		slog.Int64("market_id", marketID),
		slog.Int64("amount", res.Amount),
		slog.String("recipient", string(call.Caller)),
	)
	return res, nil
}
