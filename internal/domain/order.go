package domain

import "math"

// OrderSide distinguishes backing an outcome from laying it.
type OrderSide string

const (
	// OrderSideBack bets that the option wins; escrows the full stake.
	OrderSideBack OrderSide = "back"
	// OrderSideLay bets that the option loses; escrows only the liability.
	OrderSideLay OrderSide = "lay"
)

// OrderStatus tracks the order lifecycle. Orders are never deleted; a
// cancelled order keeps its filled portion on record.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
)

// Odds bounds. Odds are integers at scale 100, so 150 means 1.50x.
const (
	MinOdds int64 = 100
	MaxOdds int64 = 9900
)

// MaxOrderAmount caps a single order's stake so that amount x odds stays
// inside int64 at MaxOdds. LayCollateral and BackPayout rely on this bound.
const MaxOrderAmount = math.MaxInt64 / MaxOdds

// Order is a resting or incoming back/lay order against one market option.
// Invariant: 0 <= FilledAmount <= Amount, and once Status is Canceled,
// Amount == FilledAmount.
type Order struct {
	ID           int64
	MarketID     int64
	Creator      Identity
	OptionID     int
	Side         OrderSide
	Amount       int64
	Odds         int64
	FilledAmount int64
	Status       OrderStatus
	Timestamp    int64 // unix seconds, set at placement
}

// Remaining returns the unfilled portion of the order.
func (o Order) Remaining() int64 {
	return o.Amount - o.FilledAmount
}

// ValidOdds reports whether odds fall inside the accepted [100, 9900] range.
func ValidOdds(odds int64) bool {
	return odds >= MinOdds && odds <= MaxOdds
}

// LayCollateral is the liability a lay order escrows for the given stake:
// amount x (odds-100)/100 with floor division. At odds 100 the liability is
// zero, which placement rejects.
func LayCollateral(amount, odds int64) int64 {
	return amount * (odds - MinOdds) / 100
}

// BackPayout is the gross amount the back side receives when it wins:
// stake x odds/100 with floor division.
func BackPayout(amount, odds int64) int64 {
	return amount * odds / 100
}

// RequiredCollateral returns the escrow a new order of the given side must
// attach.
func RequiredCollateral(side OrderSide, amount, odds int64) int64 {
	if side == OrderSideLay {
		return LayCollateral(amount, odds)
	}
	return amount
}

// MatchedBet is an executed match between one back and one lay identity at
// the resting order's odds. Immutable except the Redeemed flag, which never
// reverts once set.
type MatchedBet struct {
	ID        int64
	MarketID  int64
	OptionID  int
	Amount    int64
	Odds      int64
	Timestamp int64
	BackUser  Identity
	LayUser   Identity
	Redeemed  bool
}
