package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predexchange/predex/internal/domain"
)

func TestUpdateConfig(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.ErrorIs(t, eng.UpdateConfig(ctx, call(bobID, 0), "min_bet", "250"), domain.ErrUnauthorized)

	require.NoError(t, eng.UpdateConfig(ctx, call(adminID, 0), "min_bet", "250"))
	cfg, err := eng.Config(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(250), cfg.MinBet)

	require.ErrorIs(t, eng.UpdateConfig(ctx, call(adminID, 0), "min_bet", "0"), domain.ErrInvalidMinBet)
	require.ErrorIs(t, eng.UpdateConfig(ctx, call(adminID, 0), "min_bet", "lots"), domain.ErrInvalidField)
	require.ErrorIs(t, eng.UpdateConfig(ctx, call(adminID, 0), "max_bet", "250"), domain.ErrInvalidField)
}

func TestUpdateConfigHandsOverAdmin(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.UpdateConfig(ctx, call(adminID, 0), "admin", string(bobID)))

	// The old admin is just another caller now.
	require.ErrorIs(t, eng.UpdateConfig(ctx, call(adminID, 0), "min_bet", "250"), domain.ErrUnauthorized)
	require.NoError(t, eng.UpdateConfig(ctx, call(bobID, 0), "min_bet", "250"))
}

func TestWhitelistMembership(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.ErrorIs(t, eng.AddToWhitelist(ctx, call(bobID, 0), carolID), domain.ErrUnauthorized)

	require.NoError(t, eng.AddToWhitelist(ctx, call(adminID, 0), carolID))
	require.ErrorIs(t, eng.AddToWhitelist(ctx, call(adminID, 0), carolID), domain.ErrAlreadyWhitelisted)

	ok, err := eng.IsWhitelisted(ctx, carolID)
	require.NoError(t, err)
	require.True(t, ok)

	members, err := eng.WhitelistMembers(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Equal(t, []domain.Identity{carolID}, members)

	require.NoError(t, eng.RemoveFromWhitelist(ctx, call(adminID, 0), carolID))
	ok, err = eng.IsWhitelisted(ctx, carolID)
	require.NoError(t, err)
	require.False(t, ok)

	// Removing an absent identity is a no-op.
	require.NoError(t, eng.RemoveFromWhitelist(ctx, call(adminID, 0), carolID))
}

func TestMarketsStatusFilter(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	first := createTestMarket(t, eng)
	second := createTestMarket(t, eng)
	_, err := eng.CancelMarket(ctx, call(adminID, 0), second)
	require.NoError(t, err)

	all, err := eng.Markets(ctx, nil, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	active := domain.MarketStatusActive
	markets, err := eng.Markets(ctx, &active, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.Equal(t, first, markets[0].ID)
}

func TestOrderBookSideFilter(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	lay(t, eng, marketID, bobID, 200, 150)
	back := domain.OrderSideBack
	_, err := eng.PlaceOrder(ctx, call(carolID, 100), PlaceOrderParams{
		MarketID: marketID, OptionID: 1, Side: back, Amount: 100, Odds: 300,
	})
	require.NoError(t, err)

	book, err := eng.OrderBook(ctx, marketID, nil, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, book, 2)

	backs, err := eng.OrderBook(ctx, marketID, &back, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, backs, 1)
	require.Equal(t, carolID, backs[0].Creator)
}

func TestUserOrdersFilter(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	first := createTestMarket(t, eng)
	second := createTestMarket(t, eng)

	lay(t, eng, first, bobID, 200, 150)
	lay(t, eng, second, bobID, 300, 200)
	lay(t, eng, second, carolID, 100, 150)

	orders, err := eng.UserOrders(ctx, bobID, nil, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	orders, err = eng.UserOrders(ctx, bobID, &second, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, int64(300), orders[0].Amount)
}

func TestBetsFilters(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	marketID := createTestMarket(t, eng)

	lay(t, eng, marketID, bobID, 200, 150)
	_, err := eng.PlaceOrder(ctx, call(carolID, 200), PlaceOrderParams{
		MarketID: marketID, OptionID: 0, Side: domain.OrderSideBack, Amount: 200, Odds: 150,
	})
	require.NoError(t, err)

	bets, err := eng.Bets(ctx, &marketID, nil, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, bets, 1)

	// A user filter matches either side of the bet.
	for _, user := range []domain.Identity{bobID, carolID} {
		bets, err = eng.Bets(ctx, nil, &user, domain.ListOpts{})
		require.NoError(t, err)
		require.Len(t, bets, 1)
	}

	stranger := strangerID
	bets, err = eng.Bets(ctx, nil, &stranger, domain.ListOpts{})
	require.NoError(t, err)
	require.Empty(t, bets)
}
