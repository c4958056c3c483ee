package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predexchange/predex/internal/domain"
)

// lay places a resting lay order for the given creator and returns its id.
func lay(t *testing.T, eng *Engine, marketID int64, who domain.Identity, amount, odds int64) int64 {
	t.Helper()
	res, err := eng.PlaceOrder(context.Background(), call(who, domain.LayCollateral(amount, odds)), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideLay, Amount: amount, Odds: odds,
	})
	require.NoError(t, err)
	return res.OrderID
}

// back places a resting back order for the given creator and returns its id.
func back(t *testing.T, eng *Engine, marketID int64, who domain.Identity, amount, odds int64) int64 {
	t.Helper()
	res, err := eng.PlaceOrder(context.Background(), call(who, amount), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: amount, Odds: odds,
	})
	require.NoError(t, err)
	return res.OrderID
}

func TestMatchExecutesAtRestingOdds(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	layID := lay(t, eng, marketID, bobID, 200, 180)

	// A back at 150 accepts any lay at 150 or higher; the bet prints at
	// the resting 180, not the incoming 150.
	res, err := eng.PlaceOrder(ctx, call(carolID, 200), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)
	require.Len(t, res.Bets, 1)
	require.Equal(t, int64(180), res.Bets[0].Odds)
	require.Equal(t, int64(200), res.Bets[0].Amount)
	require.Equal(t, carolID, res.Bets[0].BackUser)
	require.Equal(t, bobID, res.Bets[0].LayUser)

	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, layID).Status)
	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, res.OrderID).Status)
}

func TestMatchBackTakesLowestLayOddsFirst(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	higher := lay(t, eng, marketID, bobID, 100, 300)
	lower := lay(t, eng, marketID, carolID, 100, 150)

	// Both lays are acceptable to a back at 150; the lower odds fill
	// first even though the 300 lay rested earlier.
	res, err := eng.PlaceOrder(ctx, call(aliceID, 150), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 150, Odds: 150,
	})
	require.NoError(t, err)
	require.Len(t, res.Bets, 2)
	require.Equal(t, int64(150), res.Bets[0].Odds)
	require.Equal(t, int64(100), res.Bets[0].Amount)
	require.Equal(t, int64(300), res.Bets[1].Odds)
	require.Equal(t, int64(50), res.Bets[1].Amount)

	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, lower).Status)
	require.Equal(t, domain.OrderStatusPartiallyFilled, getOrder(t, eng, higher).Status)
	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, res.OrderID).Status)
}

func TestMatchLayTakesHighestBackFirst(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	low := back(t, eng, marketID, bobID, 100, 150)
	high := back(t, eng, marketID, carolID, 100, 180)

	// Incoming lay at 200 accepts backs at 200 or lower, highest odds
	// first.
	res, err := eng.PlaceOrder(ctx, call(aliceID, domain.LayCollateral(100, 200)), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideLay, Amount: 100, Odds: 200,
	})
	require.NoError(t, err)
	require.Len(t, res.Bets, 1)
	require.Equal(t, int64(180), res.Bets[0].Odds)
	require.Equal(t, carolID, res.Bets[0].BackUser)
	require.Equal(t, aliceID, res.Bets[0].LayUser)

	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, high).Status)
	require.Equal(t, domain.OrderStatusOpen, getOrder(t, eng, low).Status)
}

func TestMatchTimePriorityAtEqualOdds(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	first := lay(t, eng, marketID, bobID, 100, 150)
	clock.now++
	second := lay(t, eng, marketID, carolID, 100, 150)

	res, err := eng.PlaceOrder(ctx, call(aliceID, 100), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 100, Odds: 150,
	})
	require.NoError(t, err)
	require.Len(t, res.Bets, 1)
	require.Equal(t, bobID, res.Bets[0].LayUser, "older order at equal odds matches first")

	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, first).Status)
	require.Equal(t, domain.OrderStatusOpen, getOrder(t, eng, second).Status)
}

func TestMatchSkipsIneligibleCandidates(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	// Book: lays at 120, 160, and 200. A back at 150 cannot accept the
	// 120 lay; the scan skips it and still reaches the 160 and 200 lays
	// behind it.
	skipped := lay(t, eng, marketID, bobID, 100, 120)
	lay(t, eng, marketID, carolID, 100, 160)
	lay(t, eng, marketID, bobID, 100, 200)

	res, err := eng.PlaceOrder(ctx, call(aliceID, 300), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 300, Odds: 150,
	})
	require.NoError(t, err)
	require.Len(t, res.Bets, 2)
	require.Equal(t, int64(160), res.Bets[0].Odds)
	require.Equal(t, int64(200), res.Bets[1].Odds)
	require.Equal(t, int64(200), res.MatchedAmount)

	require.Equal(t, domain.OrderStatusOpen, getOrder(t, eng, skipped).Status)
}

func TestMatchSpansMultipleRestingOrders(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	lay(t, eng, marketID, bobID, 120, 160)
	partial := lay(t, eng, marketID, carolID, 200, 170)

	res, err := eng.PlaceOrder(ctx, call(aliceID, 250), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 250, Odds: 160,
	})
	require.NoError(t, err)
	require.Len(t, res.Bets, 2)
	require.Equal(t, int64(120), res.Bets[0].Amount)
	require.Equal(t, int64(130), res.Bets[1].Amount)
	require.Equal(t, int64(250), res.MatchedAmount)
	require.Equal(t, domain.OrderStatusFilled, getOrder(t, eng, res.OrderID).Status)

	rest := getOrder(t, eng, partial)
	require.Equal(t, domain.OrderStatusPartiallyFilled, rest.Status)
	require.Equal(t, int64(70), rest.Remaining())
}

func TestMatchIgnoresOtherOptions(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	// A lay on option 1 must not match a back on option 0.
	_, err := eng.PlaceOrder(ctx, call(bobID, domain.LayCollateral(100, 150)), PlaceOrderParams{
		MarketID: marketID, OptionID: 1, Side: domain.OrderSideLay, Amount: 100, Odds: 150,
	})
	require.NoError(t, err)

	res, err := eng.PlaceOrder(ctx, call(carolID, 100), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 100, Odds: 150,
	})
	require.NoError(t, err)
	require.Empty(t, res.Bets)
	require.Equal(t, domain.OrderStatusOpen, getOrder(t, eng, res.OrderID).Status)
}
