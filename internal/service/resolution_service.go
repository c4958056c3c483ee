package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
)

// resolveLockTTL bounds how long one instance may hold a market's
// resolution lock before it expires on its own.
const resolveLockTTL = 30 * time.Second

// ResolutionService handles the proposal/dispute/vote flow, final
// resolution, and redemption of winnings and bonds.
type ResolutionService struct {
	engine   *engine.Engine
	store    domain.Store
	bus      domain.SignalBus
	cache    domain.MarketCache
	locks    domain.LockManager
	archiver domain.SettlementArchiver
	logger   *slog.Logger
}

// NewResolutionService creates a ResolutionService with all required
// dependencies. locks and archiver may be nil in local mode.
func NewResolutionService(
	eng *engine.Engine,
	store domain.Store,
	bus domain.SignalBus,
	cache domain.MarketCache,
	locks domain.LockManager,
	archiver domain.SettlementArchiver,
	logger *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		engine:   eng,
		store:    store,
		bus:      bus,
		cache:    cache,
		locks:    locks,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "resolution_service")),
	}
}

// Propose opens the resolution phase with a bonded outcome claim.
func (s *ResolutionService) Propose(ctx context.Context, call domain.CallInfo, p engine.ProposeResultParams) (engine.ProposeResultResult, error) {
	res, err := s.engine.ProposeResult(ctx, call, p)
	if err != nil {
		return engine.ProposeResultResult{}, err
	}

	publish(ctx, s.bus, s.logger, ChannelResolutions, map[string]any{
		"event":              "result_proposed",
		"market_id":          p.MarketID,
		"result":             p.Result,
		"challenge_deadline": res.ChallengeDeadline,
	})
	auditLog(ctx, s.store, s.logger, "result_proposed", map[string]any{
		"market_id": p.MarketID,
		"proposer":  string(call.Caller),
		"result":    p.Result,
	})
	return res, nil
}

// Dispute challenges the active proposal with a matching bond.
func (s *ResolutionService) Dispute(ctx context.Context, call domain.CallInfo, p engine.RaiseDisputeParams) error {
	if err := s.engine.RaiseDispute(ctx, call, p); err != nil {
		return err
	}
	s.invalidate(ctx, p.MarketID)

	publish(ctx, s.bus, s.logger, ChannelResolutions, map[string]any{
		"event":            "dispute_raised",
		"market_id":        p.MarketID,
		"proposed_outcome": p.ProposedOutcome,
	})
	auditLog(ctx, s.store, s.logger, "dispute_raised", map[string]any{
		"market_id":  p.MarketID,
		"challenger": string(call.Caller),
	})
	return nil
}

// Vote casts the caller's vote on a disputed market.
func (s *ResolutionService) Vote(ctx context.Context, call domain.CallInfo, marketID int64, outcome int) error {
	if err := s.engine.CastVote(ctx, call, marketID, outcome); err != nil {
		return err
	}

	publish(ctx, s.bus, s.logger, ChannelResolutions, map[string]any{
		"event":     "vote_cast",
		"market_id": marketID,
		"outcome":   outcome,
	})
	return nil
}

// Resolve finalizes a market. The per-market lock stops two instances from
// racing each other through resolution and archival; the engine's own state
// checks make a duplicate attempt fail cleanly anyway.
func (s *ResolutionService) Resolve(ctx context.Context, call domain.CallInfo, marketID int64) (engine.ResolveDisputeResult, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "resolve:"+strconv.FormatInt(marketID, 10), resolveLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return engine.ResolveDisputeResult{}, domain.ErrLockHeld
			}
			return engine.ResolveDisputeResult{}, err
		}
		defer unlock()
	}

	res, err := s.engine.ResolveDispute(ctx, call, marketID)
	if err != nil {
		return engine.ResolveDisputeResult{}, err
	}
	s.invalidate(ctx, marketID)

	publish(ctx, s.bus, s.logger, ChannelResolutions, map[string]any{
		"event":     "market_resolved",
		"market_id": marketID,
		"result":    res.Result,
		"winner":    string(res.Winner),
	})
	streamTransfers(ctx, s.bus, s.logger, res.Transfers)
	auditLog(ctx, s.store, s.logger, "market_resolved", map[string]any{
		"market_id": marketID,
		"result":    res.Result,
		"winner":    string(res.Winner),
	})

	if s.archiver != nil {
		if key, err := s.archiver.ArchiveMarket(ctx, marketID); err != nil {
			s.logger.WarnContext(ctx, "settlement archive failed",
				slog.Int64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.InfoContext(ctx, "settlement archived",
				slog.Int64("market_id", marketID),
				slog.String("key", key),
			)
		}
	}
	return res, nil
}

// RedeemWinnings pays out one matched bet on a resolved market.
func (s *ResolutionService) RedeemWinnings(ctx context.Context, call domain.CallInfo, betID int64) (engine.RedeemWinningsResult, error) {
	res, err := s.engine.RedeemWinnings(ctx, call, betID)
	if err != nil {
		return engine.RedeemWinningsResult{}, err
	}

	streamTransfers(ctx, s.bus, s.logger, res.Transfers)
	auditLog(ctx, s.store, s.logger, "winnings_redeemed", map[string]any{
		"bet_id": betID,
		"caller": string(call.Caller),
	})
	return res, nil
}

// RedeemBond returns the resolution bond to the winning side.
func (s *ResolutionService) RedeemBond(ctx context.Context, call domain.CallInfo, marketID int64) (engine.RedeemBondResult, error) {
	res, err := s.engine.RedeemBond(ctx, call, marketID)
	if err != nil {
		return engine.RedeemBondResult{}, err
	}

	streamTransfers(ctx, s.bus, s.logger, res.Transfers)
	auditLog(ctx, s.store, s.logger, "bond_redeemed", map[string]any{
		"market_id": marketID,
		"caller":    string(call.Caller),
	})
	return res, nil
}

// Settlement returns a resolved market's archived settlement document and
// the object key it was stored under. Local mode carries no archive, so the
// lookup reports not found.
func (s *ResolutionService) Settlement(ctx context.Context, marketID int64) ([]byte, string, error) {
	if s.archiver == nil {
		return nil, "", domain.ErrNotFound
	}
	return s.archiver.ReadSettlement(ctx, marketID)
}

// Proposal returns a market's resolution proposal.
func (s *ResolutionService) Proposal(ctx context.Context, marketID int64) (domain.ResolutionProposal, error) {
	return s.engine.Proposal(ctx, marketID)
}

// GetDispute returns a market's dispute.
func (s *ResolutionService) GetDispute(ctx context.Context, marketID int64) (domain.Dispute, error) {
	return s.engine.Dispute(ctx, marketID)
}

// Votes returns a market's votes and tallies.
func (s *ResolutionService) Votes(ctx context.Context, marketID int64) ([]domain.Vote, []domain.VoteTally, error) {
	return s.engine.Votes(ctx, marketID)
}

func (s *ResolutionService) invalidate(ctx context.Context, marketID int64) {
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
