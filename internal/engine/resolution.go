package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/predexchange/predex/internal/domain"
)

// ProposeResultParams identify the market and the claimed winning option.
type ProposeResultParams struct {
	MarketID int64
	Result   int
}

// ProposeResultResult reports the created proposal's challenge deadline.
type ProposeResultResult struct {
	MarketID          int64
	ChallengeDeadline int64
}

// ProposeResult opens the resolution phase of a closed market: the caller
// bonds the market's resolution bond behind a claimed outcome, starting the
// challenge window. A market only ever gets one proposal; there is no
// re-proposal after a failed one.
func (e *Engine) ProposeResult(ctx context.Context, call domain.CallInfo, p ProposeResultParams) (ProposeResultResult, error) {
	var res ProposeResultResult
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

		if market.Status != domain.MarketStatusClosed {
			return domain.ErrInvalidMarketState
		}
		if now <= market.EndTime {
			return domain.ErrMarketNotEnded
		}
		if p.Result < 0 || p.Result >= len(market.Options) {
			return domain.ErrInvalidOption
		}

		if _, err := tx.Proposals().Get(ctx, p.MarketID); err == nil {
			return domain.ErrProposalExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("engine: load proposal %d: %w", p.MarketID, err)
		}

		if call.Attached(cfg.TokenDenom) != market.ResolutionBond {
			return domain.ErrIncorrectBond
		}

		proposal := domain.ResolutionProposal{
			MarketID:          p.MarketID,
			Proposer:          call.Caller,
			ProposedResult:    p.Result,
			BondAmount:        market.ResolutionBond,
			ProposalTime:      now,
			ChallengeDeadline: now + cfg.ChallengingPeriod,
			Status:            domain.ProposalStatusActive,
		}
		if err := tx.Proposals().Save(ctx, proposal); err != nil {
			return fmt.Errorf("engine: save proposal: %w", err)
		}
		res = ProposeResultResult{MarketID: p.MarketID, ChallengeDeadline: proposal.ChallengeDeadline}
		return nil
	})
	if err != nil {
		return ProposeResultResult{}, err
	}

	e.logger.InfoContext(ctx, "result proposed",
		slog.Int64("market_id", p.MarketID),
		slog.Int("result", p.Result),
		slog.Int64("challenge_deadline", res.ChallengeDeadline),
	)
	return res, nil
}

// RaiseDisputeParams identify the proposal under challenge, the challenger's
// counter-outcome, and free-form evidence.
type RaiseDisputeParams struct {
	MarketID        int64
	ProposedOutcome int
	Evidence        string
}

// RaiseDispute challenges the active proposal inside its challenge window.
// The challenger matches the proposer's bond, the proposal becomes
// Challenged, and the market enters InDispute, which opens the voting
// window.
func (e *Engine) RaiseDispute(ctx context.Context, call domain.CallInfo, p RaiseDisputeParams) error {
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
		proposal, err := tx.Proposals().Get(ctx, p.MarketID)
		if err != nil {
			return fmt.Errorf("engine: load proposal %d: %w", p.MarketID, err)
		}

		if proposal.Status != domain.ProposalStatusActive {
			return domain.ErrInvalidProposalState
		}
		if now > proposal.ChallengeDeadline {
			return domain.ErrChallengeWindowClosed
		}
		if p.ProposedOutcome < 0 || p.ProposedOutcome >= len(market.Options) {
			return domain.ErrInvalidOption
		}
		if call.Attached(cfg.TokenDenom) != market.ResolutionBond {
			return domain.ErrIncorrectBond
		}

		dispute := domain.Dispute{
			MarketID:        p.MarketID,
			Challenger:      call.Caller,
			ProposedOutcome: p.ProposedOutcome,
			Evidence:        p.Evidence,
			Status:          domain.DisputeStatusActive,
			CreatedAt:       now,
		}
		if err := tx.Disputes().Save(ctx, dispute); err != nil {
			return fmt.Errorf("engine: save dispute: %w", err)
		}

		proposal.Status = domain.ProposalStatusChallenged
		if err := tx.Proposals().Save(ctx, proposal); err != nil {
			return fmt.Errorf("engine: save proposal: %w", err)
		}

		market.Status = domain.MarketStatusInDispute
		if err := tx.Markets().Update(ctx, market); err != nil {
			return fmt.Errorf("engine: update market %d: %w", p.MarketID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "dispute raised",
		slog.Int64("market_id", p.MarketID),
		slog.Int("proposed_outcome", p.ProposedOutcome),
	)
	return nil
}

// CastVote records one whitelisted identity's binary vote on a disputed
// market. Outcome 0 votes to uphold side A, outcome 1 side B; the vote is
// binary regardless of the market's option count.
func (e *Engine) CastVote(ctx context.Context, call domain.CallInfo, marketID int64, outcome int) error {
	now := e.now()

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		if outcome != 0 && outcome != 1 {
			return domain.ErrInvalidVote
		}
		if err := requireWhitelisted(ctx, tx, call.Caller); err != nil {
			return err
		}

		market, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}
		if market.Status != domain.MarketStatusInDispute {
			return domain.ErrInvalidMarketState
		}

		dispute, err := tx.Disputes().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load dispute %d: %w", marketID, err)
		}
		if now > dispute.CreatedAt+cfg.VotingPeriod {
			return domain.ErrVotingWindowClosed
		}

		voted, err := tx.Votes().Has(ctx, marketID, call.Caller)
		if err != nil {
			return fmt.Errorf("engine: check vote: %w", err)
		}
		if voted {
			return domain.ErrAlreadyVoted
		}

		if err := tx.Votes().Save(ctx, domain.Vote{MarketID: marketID, Voter: call.Caller, Outcome: outcome}); err != nil {
			return fmt.Errorf("engine: save vote: %w", err)
		}
		if err := tx.Votes().Increment(ctx, marketID, outcome); err != nil {
			return fmt.Errorf("engine: increment tally: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "vote cast",
		slog.Int64("market_id", marketID),
		slog.Int("outcome", outcome),
	)
	return nil
}

// ResolveDisputeResult reports the final outcome and the bond reward payout.
type ResolveDisputeResult struct {
	MarketID  int64
	Result    int
	Winner    domain.Identity
	Transfers []domain.Transfer
}

// ResolveDispute finalizes a market after its resolution windows have run
// out. For an unchallenged proposal past its challenge deadline, the
// proposed result stands and the proposer earns the resolution reward. For a
// challenged proposal past the voting window, the vote decides: the outcome
// with strictly more votes wins, ties falling to the lower outcome index,
// and the reward goes to whichever of proposer and challenger backed the
// winning outcome. Bond returns are claimed separately through RedeemBond.
func (e *Engine) ResolveDispute(ctx context.Context, call domain.CallInfo, marketID int64) (ResolveDisputeResult, error) {
	var res ResolveDisputeResult
	now := e.now()

	err := e.store.Exec(ctx, func(tx domain.StoreTx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load config: %w", err)
		}
		if err := requireAdmin(cfg, call.Caller); err != nil {
			return err
		}

		market, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}
		proposal, err := tx.Proposals().Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("engine: load proposal %d: %w", marketID, err)
		}

		var (
			result int
			winner domain.Identity
		)
		switch proposal.Status {
		case domain.ProposalStatusActive:
			if now <= proposal.ChallengeDeadline {
				return domain.ErrChallengeWindowOpen
			}
			result = proposal.ProposedResult
			winner = proposal.Proposer

		case domain.ProposalStatusChallenged:
			dispute, err := tx.Disputes().Get(ctx, marketID)
			if err != nil {
				return fmt.Errorf("engine: load dispute %d: %w", marketID, err)
			}
			if now <= proposal.ChallengeDeadline+cfg.VotingPeriod {
				return domain.ErrVotingWindowOpen
			}

			tallies, err := tx.Votes().Tallies(ctx, marketID)
			if err != nil {
				return fmt.Errorf("engine: load tallies %d: %w", marketID, err)
			}
			if len(tallies) == 0 {
				return domain.ErrNoVotes
			}
			// Tallies come back ascending by outcome; strict comparison makes
			// the lowest outcome index win a tie.
			winning := tallies[0]
			for _, t := range tallies[1:] {
				if t.Count > winning.Count {
					winning = t
				}
			}
			result = winning.Outcome
			if result == proposal.ProposedResult {
				winner = proposal.Proposer
			} else {
				winner = dispute.Challenger
			}

			dispute.Status = domain.DisputeStatusResolved
			if err := tx.Disputes().Save(ctx, dispute); err != nil {
				return fmt.Errorf("engine: save dispute: %w", err)
			}

		default:
			return domain.ErrInvalidProposalState
		}

		market.Status = domain.MarketStatusResolved
		market.Result = &result
		if err := tx.Markets().Update(ctx, market); err != nil {
			return fmt.Errorf("engine: update market %d: %w", marketID, err)
		}

		proposal.Status = domain.ProposalStatusResolved
		if err := tx.Proposals().Save(ctx, proposal); err != nil {
			return fmt.Errorf("engine: save proposal: %w", err)
		}

		res = ResolveDisputeResult{MarketID: marketID, Result: result, Winner: winner}
		if market.ResolutionReward > 0 {
			t := domain.Transfer{To: winner, Denom: cfg.TokenDenom, Amount: market.ResolutionReward}
			if err := queueTransfer(ctx, tx, &res.Transfers, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ResolveDisputeResult{}, err
	}

	e.logger.InfoContext(ctx, "market resolved",
		slog.Int64("market_id", marketID),
		slog.Int("result", res.Result),
		slog.String("winner", string(res.Winner)),
	)
	return res, nil
}
