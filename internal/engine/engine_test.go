package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/store/memory"
)

const (
	adminID      = domain.Identity("0x00000000000000000000000000000000000000aa")
	treasuryID   = domain.Identity("0x00000000000000000000000000000000000000bb")
	aliceID      = domain.Identity("0x0000000000000000000000000000000000000001")
	bobID        = domain.Identity("0x0000000000000000000000000000000000000002")
	carolID      = domain.Identity("0x0000000000000000000000000000000000000003")
	strangerID   = domain.Identity("0x00000000000000000000000000000000000000ff")
	testDenom    = "utoken"
	testMinBet   = int64(100)
	testPeriod   = int64(3600) // both windows, seconds
	testBond     = int64(500)
	testReward   = int64(50)
	testStart    = int64(1_000_000)
	testEnd      = int64(1_001_000)
	testQuestion = "Will it rain in the city tomorrow?"
	testDesc     = "Resolves to yes if any rain falls in the city before midnight tomorrow."
)

// stubClock is a mutable fixed clock.
type stubClock struct {
	now int64
}

func (c *stubClock) Now() time.Time { return time.Unix(c.now, 0) }

func testConfig() domain.ExchangeConfig {
	return domain.ExchangeConfig{
		Admin:             adminID,
		Treasury:          treasuryID,
		TokenDenom:        testDenom,
		ChallengingPeriod: testPeriod,
		VotingPeriod:      testPeriod,
		MinBet:            testMinBet,
		WhitelistEnabled:  false,
	}
}

// newTestEngine builds an engine over the in-memory store with the clock
// just before testStart and the test config bootstrapped.
func newTestEngine(t *testing.T) (*Engine, *memory.Store, *stubClock) {
	t.Helper()
	store := memory.New()
	clock := &stubClock{now: testStart - 100}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := New(store, clock, logger)
	require.NoError(t, eng.Bootstrap(context.Background(), testConfig()))
	return eng, store, clock
}

func call(who domain.Identity, amount int64) domain.CallInfo {
	c := domain.CallInfo{Caller: who}
	if amount > 0 {
		c.Funds = []domain.Funds{{Denom: testDenom, Amount: amount}}
	}
	return c
}

// createTestMarket creates a two-option market owned by alice.
func createTestMarket(t *testing.T, eng *Engine) int64 {
	t.Helper()
	res, err := eng.CreateMarket(context.Background(), call(aliceID, testReward), CreateMarketParams{
		Category:         "weather",
		Question:         testQuestion,
		Description:      testDesc,
		Options:          []string{"yes", "no"},
		StartTime:        testStart,
		EndTime:          testEnd,
		ResolutionBond:   testBond,
		ResolutionReward: testReward,
	})
	require.NoError(t, err)
	return res.MarketID
}

// getMarket reads a market outside any operation.
func getMarket(t *testing.T, eng *Engine, id int64) domain.Market {
	t.Helper()
	m, err := eng.Market(context.Background(), id)
	require.NoError(t, err)
	return m
}

func getOrder(t *testing.T, eng *Engine, id int64) domain.Order {
	t.Helper()
	o, err := eng.Order(context.Background(), id)
	require.NoError(t, err)
	return o
}

func TestBootstrapIsIdempotent(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	changed := testConfig()
	changed.MinBet = 999
	require.NoError(t, eng.Bootstrap(ctx, changed))

	cfg, err := eng.Config(ctx)
	require.NoError(t, err)
	require.Equal(t, testMinBet, cfg.MinBet, "second bootstrap must not overwrite")
}

func TestBootstrapRejectsInvalidConfig(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	bad := testConfig()
	bad.MinBet = 0
	require.ErrorIs(t, eng.Bootstrap(context.Background(), bad), domain.ErrInvalidMinBet)
}
