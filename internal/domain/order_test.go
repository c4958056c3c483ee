package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidOdds(t *testing.T) {
	assert.True(t, ValidOdds(100))
	assert.True(t, ValidOdds(150))
	assert.True(t, ValidOdds(9900))
	assert.False(t, ValidOdds(99))
	assert.False(t, ValidOdds(9901))
	assert.False(t, ValidOdds(0))
	assert.False(t, ValidOdds(-150))
}

func TestLayCollateral(t *testing.T) {
	// 200 at 1.50x risks 100.
	assert.Equal(t, int64(100), LayCollateral(200, 150))
	// Floor division: 250 x 75 / 100 = 187.5 rounds down.
	assert.Equal(t, int64(187), LayCollateral(250, 175))
	// At the minimum odds there is nothing to lose.
	assert.Equal(t, int64(0), LayCollateral(500, 100))
}

func TestBackPayout(t *testing.T) {
	assert.Equal(t, int64(300), BackPayout(200, 150))
	assert.Equal(t, int64(100), BackPayout(100, 100))
	// Floor division: 333 x 150 / 100 = 499.5 rounds down.
	assert.Equal(t, int64(499), BackPayout(333, 150))
}

func TestMaxOrderAmountBoundsProducts(t *testing.T) {
	// At the cap, both products must stay positive, i.e. inside int64.
	assert.Positive(t, BackPayout(MaxOrderAmount, MaxOdds))
	assert.Positive(t, LayCollateral(MaxOrderAmount, MaxOdds))
	assert.Equal(t, MaxOrderAmount*MaxOdds/100, BackPayout(MaxOrderAmount, MaxOdds))
}

func TestRequiredCollateral(t *testing.T) {
	assert.Equal(t, int64(200), RequiredCollateral(OrderSideBack, 200, 150))
	assert.Equal(t, int64(100), RequiredCollateral(OrderSideLay, 200, 150))
}

func TestOrderRemaining(t *testing.T) {
	o := Order{Amount: 500, FilledAmount: 120}
	assert.Equal(t, int64(380), o.Remaining())
	o.FilledAmount = 500
	assert.Equal(t, int64(0), o.Remaining())
}
