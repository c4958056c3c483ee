package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predexchange/predex/internal/domain"
)

// closedMarket creates a market and closes it by advancing the clock past
// the end time.
func closedMarket(t *testing.T, eng *Engine, clock *stubClock) int64 {
	t.Helper()
	marketID := createTestMarket(t, eng)
	clock.now = testEnd + 1
	_, err := eng.CloseMarket(context.Background(), call(adminID, 0), marketID)
	require.NoError(t, err)
	return marketID
}

// proposedMarket creates a closed market with bob's active proposal for
// outcome 0.
func proposedMarket(t *testing.T, eng *Engine, clock *stubClock) int64 {
	t.Helper()
	marketID := closedMarket(t, eng, clock)
	_, err := eng.ProposeResult(context.Background(), call(bobID, testBond), ProposeResultParams{
		MarketID: marketID, Result: 0,
	})
	require.NoError(t, err)
	return marketID
}

// disputedMarket additionally has carol's dispute claiming outcome 1, with
// carol and alice whitelisted as voters.
func disputedMarket(t *testing.T, eng *Engine, clock *stubClock) int64 {
	t.Helper()
	ctx := context.Background()
	marketID := proposedMarket(t, eng, clock)
	require.NoError(t, eng.RaiseDispute(ctx, call(carolID, testBond), RaiseDisputeParams{
		MarketID: marketID, ProposedOutcome: 1, Evidence: "observed otherwise",
	}))
	require.NoError(t, eng.AddToWhitelist(ctx, call(adminID, 0), carolID))
	require.NoError(t, eng.AddToWhitelist(ctx, call(adminID, 0), aliceID))
	return marketID
}

func TestProposeResult(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := closedMarket(t, eng, clock)

	res, err := eng.ProposeResult(ctx, call(bobID, testBond), ProposeResultParams{
		MarketID: marketID, Result: 1,
	})
	require.NoError(t, err)
	require.Equal(t, clock.now+testPeriod, res.ChallengeDeadline)

	p, err := eng.Proposal(ctx, marketID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalStatusActive, p.Status)
	require.Equal(t, bobID, p.Proposer)
	require.Equal(t, 1, p.ProposedResult)
	require.Equal(t, testBond, p.BondAmount)

	// A market gets exactly one proposal, ever.
	_, err = eng.ProposeResult(ctx, call(carolID, testBond), ProposeResultParams{
		MarketID: marketID, Result: 0,
	})
	require.ErrorIs(t, err, domain.ErrProposalExists)
}

func TestProposeResultValidation(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()

	// An active market cannot receive a proposal.
	active := createTestMarket(t, eng)
	_, err := eng.ProposeResult(ctx, call(bobID, testBond), ProposeResultParams{MarketID: active, Result: 0})
	require.ErrorIs(t, err, domain.ErrInvalidMarketState)

	marketID := closedMarket(t, eng, clock)

	// Result must reference an existing option.
	_, err = eng.ProposeResult(ctx, call(bobID, testBond), ProposeResultParams{MarketID: marketID, Result: 2})
	require.ErrorIs(t, err, domain.ErrInvalidOption)

	// The bond must match exactly, in both directions.
	_, err = eng.ProposeResult(ctx, call(bobID, testBond-1), ProposeResultParams{MarketID: marketID, Result: 0})
	require.ErrorIs(t, err, domain.ErrIncorrectBond)
	_, err = eng.ProposeResult(ctx, call(bobID, testBond+1), ProposeResultParams{MarketID: marketID, Result: 0})
	require.ErrorIs(t, err, domain.ErrIncorrectBond)
}

func TestRaiseDispute(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := proposedMarket(t, eng, clock)

	// Bond must match the market's resolution bond exactly.
	err := eng.RaiseDispute(ctx, call(carolID, testBond+1), RaiseDisputeParams{
		MarketID: marketID, ProposedOutcome: 1,
	})
	require.ErrorIs(t, err, domain.ErrIncorrectBond)

	require.NoError(t, eng.RaiseDispute(ctx, call(carolID, testBond), RaiseDisputeParams{
		MarketID: marketID, ProposedOutcome: 1, Evidence: "the event did not happen",
	}))

	require.Equal(t, domain.MarketStatusInDispute, getMarket(t, eng, marketID).Status)
	p, err := eng.Proposal(ctx, marketID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalStatusChallenged, p.Status)
	d, err := eng.Dispute(ctx, marketID)
	require.NoError(t, err)
	require.Equal(t, carolID, d.Challenger)
	require.Equal(t, 1, d.ProposedOutcome)

	// A challenged proposal cannot be challenged again.
	err = eng.RaiseDispute(ctx, call(aliceID, testBond), RaiseDisputeParams{
		MarketID: marketID, ProposedOutcome: 0,
	})
	require.ErrorIs(t, err, domain.ErrInvalidProposalState)
}

func TestRaiseDisputeWindowCloses(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	marketID := proposedMarket(t, eng, clock)

	clock.now += testPeriod + 1
	err := eng.RaiseDispute(context.Background(), call(carolID, testBond), RaiseDisputeParams{
		MarketID: marketID, ProposedOutcome: 1,
	})
	require.ErrorIs(t, err, domain.ErrChallengeWindowClosed)
}

func TestCastVote(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := disputedMarket(t, eng, clock)

	// Only whitelisted identities vote.
	require.ErrorIs(t, eng.CastVote(ctx, call(strangerID, 0), marketID, 0), domain.ErrNotWhitelisted)

	// Votes are binary.
	require.ErrorIs(t, eng.CastVote(ctx, call(carolID, 0), marketID, 2), domain.ErrInvalidVote)

	require.NoError(t, eng.CastVote(ctx, call(carolID, 0), marketID, 1))
	require.NoError(t, eng.CastVote(ctx, call(aliceID, 0), marketID, 0))

	// One vote per identity per market.
	require.ErrorIs(t, eng.CastVote(ctx, call(carolID, 0), marketID, 0), domain.ErrAlreadyVoted)

	votes, tallies, err := eng.Votes(ctx, marketID)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	require.Len(t, tallies, 2)
	for _, tally := range tallies {
		require.Equal(t, int64(1), tally.Count)
	}
}

func TestCastVoteWindowCloses(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	marketID := disputedMarket(t, eng, clock)

	clock.now += testPeriod + 1
	err := eng.CastVote(context.Background(), call(carolID, 0), marketID, 1)
	require.ErrorIs(t, err, domain.ErrVotingWindowClosed)
}

func TestResolveUnchallengedProposal(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := proposedMarket(t, eng, clock)

	// Admin only.
	_, err := eng.ResolveDispute(ctx, call(bobID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// The challenge window must have run out.
	_, err = eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrChallengeWindowOpen)

	clock.now += testPeriod + 1
	res, err := eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)
	require.Equal(t, 0, res.Result)
	require.Equal(t, bobID, res.Winner)
	require.Len(t, res.Transfers, 1, "resolution reward goes to the proposer")
	require.Equal(t, testReward, res.Transfers[0].Amount)

	m := getMarket(t, eng, marketID)
	require.Equal(t, domain.MarketStatusResolved, m.Status)
	require.NotNil(t, m.Result)
	require.Equal(t, 0, *m.Result)

	// Resolution is final.
	_, err = eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrInvalidProposalState)
}

func TestResolveChallengedProposal(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := disputedMarket(t, eng, clock)

	require.NoError(t, eng.CastVote(ctx, call(carolID, 0), marketID, 1))
	require.NoError(t, eng.CastVote(ctx, call(aliceID, 0), marketID, 1))

	// The voting window must have run out first.
	_, err := eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrVotingWindowOpen)

	clock.now += 2*testPeriod + 1
	res, err := eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Result)
	require.Equal(t, carolID, res.Winner, "challenger backed the winning outcome")

	p, err := eng.Proposal(ctx, marketID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalStatusResolved, p.Status)
	d, err := eng.Dispute(ctx, marketID)
	require.NoError(t, err)
	require.Equal(t, domain.DisputeStatusResolved, d.Status)
}

func TestResolveTieFallsToLowerOutcome(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := disputedMarket(t, eng, clock)

	require.NoError(t, eng.CastVote(ctx, call(carolID, 0), marketID, 1))
	require.NoError(t, eng.CastVote(ctx, call(aliceID, 0), marketID, 0))

	clock.now += 2*testPeriod + 1
	res, err := eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)
	require.Equal(t, 0, res.Result, "tie resolves to the lowest outcome index")
	require.Equal(t, bobID, res.Winner, "proposer backed outcome 0")
}

func TestResolveChallengedWithoutVotes(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	marketID := disputedMarket(t, eng, clock)

	clock.now += 2*testPeriod + 1
	_, err := eng.ResolveDispute(context.Background(), call(adminID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrNoVotes)
}

// resolvedMarket prepares a resolved market with one matched bet on option
// 0 for 200 at odds 150 (carol backs, bob lays), resolved to the given
// outcome through bob's proposal.
func resolvedMarket(t *testing.T, eng *Engine, clock *stubClock, outcome int) (marketID, betID int64) {
	t.Helper()
	ctx := context.Background()
	marketID = createTestMarket(t, eng)

	_, err := eng.PlaceOrder(ctx, call(bobID, 100), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideLay, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)
	backRes, err := eng.PlaceOrder(ctx, call(carolID, 200), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)
	require.Len(t, backRes.Bets, 1)
	betID = backRes.Bets[0].ID

	clock.now = testEnd + 1
	_, err = eng.CloseMarket(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)
	_, err = eng.ProposeResult(ctx, call(bobID, testBond), ProposeResultParams{
		MarketID: marketID, Result: outcome,
	})
	require.NoError(t, err)

	clock.now += testPeriod + 1
	_, err = eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)
	return marketID, betID
}

func TestRedeemWinningsBackWins(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	_, betID := resolvedMarket(t, eng, clock, 0)

	// The losing side cannot redeem.
	_, err := eng.RedeemWinnings(ctx, call(bobID, 0), betID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	res, err := eng.RedeemWinnings(ctx, call(carolID, 0), betID)
	require.NoError(t, err)
	require.Equal(t, int64(300), res.Amount, "stake x odds / 100")
	require.Len(t, res.Transfers, 1)
	require.Equal(t, carolID, res.Transfers[0].To)

	// A bet redeems at most once.
	_, err = eng.RedeemWinnings(ctx, call(carolID, 0), betID)
	require.ErrorIs(t, err, domain.ErrAlreadyRedeemed)
}

func TestRedeemWinningsLayWins(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	_, betID := resolvedMarket(t, eng, clock, 1)

	_, err := eng.RedeemWinnings(ctx, call(carolID, 0), betID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	res, err := eng.RedeemWinnings(ctx, call(bobID, 0), betID)
	require.NoError(t, err)
	require.Equal(t, int64(200), res.Amount, "lay win returns the back stake")
}

func TestRedeemWinningsRequiresResolvedMarket(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	_, err := eng.PlaceOrder(ctx, call(bobID, 100), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideLay, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)
	backRes, err := eng.PlaceOrder(ctx, call(carolID, 200), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)

	_, err = eng.RedeemWinnings(ctx, call(carolID, 0), backRes.Bets[0].ID)
	require.ErrorIs(t, err, domain.ErrMarketNotResolved)
}

func TestRedeemBond(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID, _ := resolvedMarket(t, eng, clock, 0)

	// A bystander has no claim.
	_, err := eng.RedeemBond(ctx, call(strangerID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// The proposal stood, so the proposer collects the bond.
	res, err := eng.RedeemBond(ctx, call(bobID, 0), marketID)
	require.NoError(t, err)
	require.Equal(t, testBond, res.Amount)
	require.Equal(t, bobID, res.Transfers[0].To)
}

func TestRedeemBondLoserRejected(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := disputedMarket(t, eng, clock)

	require.NoError(t, eng.CastVote(ctx, call(carolID, 0), marketID, 1))
	require.NoError(t, eng.CastVote(ctx, call(aliceID, 0), marketID, 1))
	clock.now += 2*testPeriod + 1
	_, err := eng.ResolveDispute(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)

	// The proposal lost: the proposer gets nothing, the challenger
	// collects.
	_, err = eng.RedeemBond(ctx, call(bobID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrNotWinner)
	res, err := eng.RedeemBond(ctx, call(carolID, 0), marketID)
	require.NoError(t, err)
	require.Equal(t, testBond, res.Amount)
}
