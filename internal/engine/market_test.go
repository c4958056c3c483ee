package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predexchange/predex/internal/domain"
)

func TestCreateMarket(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	id := createTestMarket(t, eng)
	require.Equal(t, int64(1), id)

	m := getMarket(t, eng, id)
	require.Equal(t, domain.MarketStatusActive, m.Status)
	require.Equal(t, aliceID, m.Creator)
	require.Equal(t, []string{"yes", "no"}, m.Options)
	require.Equal(t, testBond, m.ResolutionBond)
	require.Nil(t, m.Result)

	require.Equal(t, int64(2), createTestMarket(t, eng), "ids are sequential")
}

func TestCreateMarketValidation(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	base := CreateMarketParams{
		Question:         testQuestion,
		Description:      testDesc,
		Options:          []string{"yes", "no"},
		StartTime:        testStart,
		EndTime:          testEnd,
		ResolutionBond:   testBond,
		ResolutionReward: testReward,
	}

	tests := []struct {
		name    string
		mutate  func(*CreateMarketParams)
		caller  domain.CallInfo
		wantErr error
	}{
		{
			name:    "bond below min bet",
			mutate:  func(p *CreateMarketParams) { p.ResolutionBond = testMinBet - 1 },
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidBond,
		},
		{
			name:    "zero bond",
			mutate:  func(p *CreateMarketParams) { p.ResolutionBond = 0 },
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidBond,
		},
		{
			name:    "start in the past",
			mutate:  func(p *CreateMarketParams) { p.StartTime = testStart - 200 },
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidTimeRange,
		},
		{
			name:    "start after end",
			mutate:  func(p *CreateMarketParams) { p.StartTime, p.EndTime = testEnd, testStart },
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidTimeRange,
		},
		{
			name:    "no options",
			mutate:  func(p *CreateMarketParams) { p.Options = nil },
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidOptions,
		},
		{
			name: "too many options",
			mutate: func(p *CreateMarketParams) {
				p.Options = make([]string, domain.MaxMarketOptions+1)
			},
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidOptions,
		},
		{
			name:    "question too short",
			mutate:  func(p *CreateMarketParams) { p.Question = "Rain?" },
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidQuestion,
		},
		{
			name:    "description too short",
			mutate:  func(p *CreateMarketParams) { p.Description = "too short" },
			caller:  call(aliceID, testReward),
			wantErr: domain.ErrInvalidDescription,
		},
		{
			name:    "no funds attached",
			mutate:  func(p *CreateMarketParams) {},
			caller:  call(aliceID, 0),
			wantErr: domain.ErrNoFunds,
		},
		{
			name:    "attached differs from reward",
			mutate:  func(p *CreateMarketParams) {},
			caller:  call(aliceID, testReward+1),
			wantErr: domain.ErrInsufficientFunds,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := eng.CreateMarket(ctx, tc.caller, p)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateMarketWhitelistGate(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.UpdateConfig(ctx, call(adminID, 0), "whitelist_enabled", "true"))
	require.NoError(t, eng.AddToWhitelist(ctx, call(adminID, 0), aliceID))

	// Whitelisted creator passes.
	createTestMarket(t, eng)

	// Anyone else is rejected.
	_, err := eng.CreateMarket(ctx, call(bobID, testReward), CreateMarketParams{
		Question:         testQuestion,
		Description:      testDesc,
		Options:          []string{"yes", "no"},
		StartTime:        testStart,
		EndTime:          testEnd,
		ResolutionBond:   testBond,
		ResolutionReward: testReward,
	})
	require.ErrorIs(t, err, domain.ErrNotWhitelisted)
}

func TestCancelMarketUnwindsEverything(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	// A matched pair: bob lays 200@150, carol backs 200@150.
	layRes, err := eng.PlaceOrder(ctx, call(bobID, 100), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideLay, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)
	backRes, err := eng.PlaceOrder(ctx, call(carolID, 200), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)
	require.Len(t, backRes.Bets, 1)

	// And one resting order with an unfilled remainder.
	openRes, err := eng.PlaceOrder(ctx, call(bobID, 300), PlaceOrderParams{
		MarketID: marketID, OptionID: 1, Side: domain.OrderSideBack, Amount: 300, Odds: 200,
	})
	require.NoError(t, err)

	res, err := eng.CancelMarket(ctx, call(aliceID, 0), marketID)
	require.NoError(t, err)

	require.Equal(t, domain.MarketStatusCanceled, getMarket(t, eng, marketID).Status)

	// One refund for the open remainder, two for the matched bet.
	require.Len(t, res.Transfers, 3)
	byRecipient := map[domain.Identity]int64{}
	for _, tr := range res.Transfers {
		require.Equal(t, testDenom, tr.Denom)
		byRecipient[tr.To] += tr.Amount
	}
	// bob: 300 open-back remainder + 100 lay liability of the bet.
	require.Equal(t, int64(400), byRecipient[bobID])
	// carol: 200 back stake of the bet.
	require.Equal(t, int64(200), byRecipient[carolID])

	// Open orders collapse to their filled amount; a fully filled order keeps
	// its Filled status, the bet refund covers it.
	open := getOrder(t, eng, openRes.OrderID)
	require.Equal(t, domain.OrderStatusCanceled, open.Status)
	require.Equal(t, open.FilledAmount, open.Amount)
	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, layRes.OrderID).Status)
}

func TestCancelMarketAuthorization(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	_, err := eng.CancelMarket(ctx, call(bobID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// Admin may cancel someone else's market.
	_, err = eng.CancelMarket(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)

	// A terminal market cannot be canceled again.
	_, err = eng.CancelMarket(ctx, call(adminID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrInvalidMarketState)
}

func TestCloseMarket(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	orderRes, err := eng.PlaceOrder(ctx, call(bobID, 150), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 150, Odds: 200,
	})
	require.NoError(t, err)

	// Not admin.
	_, err = eng.CloseMarket(ctx, call(aliceID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// Before the end time.
	_, err = eng.CloseMarket(ctx, call(adminID, 0), marketID)
	require.ErrorIs(t, err, domain.ErrMarketNotEnded)

	clock.now = testEnd + 1
	res, err := eng.CloseMarket(ctx, call(adminID, 0), marketID)
	require.NoError(t, err)

	require.Equal(t, domain.MarketStatusClosed, getMarket(t, eng, marketID).Status)
	require.Len(t, res.Transfers, 1)
	require.Equal(t, bobID, res.Transfers[0].To)
	require.Equal(t, int64(150), res.Transfers[0].Amount)
	require.Equal(t, domain.OrderStatusCanceled, getOrder(t, eng, orderRes.OrderID).Status)
}

func TestStatistics(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	_, err := eng.PlaceOrder(ctx, call(bobID, 100), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideLay, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)
	_, err = eng.PlaceOrder(ctx, call(carolID, 150), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 150, Odds: 150,
	})
	require.NoError(t, err)

	stats, err := eng.Statistics(ctx, marketID)
	require.NoError(t, err)
	require.Equal(t, marketID, stats.MarketID)
	require.Equal(t, int64(150), stats.TotalVolume, "volume counts matched amounts")
	require.Equal(t, int64(2), stats.OrderCount)
	require.Equal(t, domain.MarketStatusActive, stats.Status)
}
