package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrUnauthorized, KindUnauthorized},
		{ErrNotWhitelisted, KindUnauthorized},
		{ErrInvalidOdds, KindValidation},
		{ErrBetTooSmall, KindValidation},
		{ErrInvalidMarketState, KindStatePrecondition},
		{ErrChallengeWindowOpen, KindStatePrecondition},
		{ErrNotWinner, KindStatePrecondition},
		{ErrNoFunds, KindFunds},
		{ErrIncorrectBond, KindFunds},
		{ErrNotFound, KindNotFound},
		{ErrAlreadyRedeemed, KindIdempotency},
		{ErrProposalExists, KindIdempotency},
		{ErrRateLimited, KindRateLimited},
		{errors.New("disk on fire"), KindInternal},
		{nil, KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), "err=%v", tc.err)
	}
}

func TestKindUnwrapsContext(t *testing.T) {
	wrapped := fmt.Errorf("engine: load market 7: %w", ErrNotFound)
	assert.Equal(t, KindNotFound, Kind(wrapped))

	deep := fmt.Errorf("handler: %w", fmt.Errorf("engine: place order: %w", ErrInsufficientFunds))
	assert.Equal(t, KindFunds, Kind(deep))
}
