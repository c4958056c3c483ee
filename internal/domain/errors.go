package domain

import "errors"

// Sentinel errors for the exchange core. Handlers use Kind to map these onto
// HTTP responses; the engine wraps them with operation context via
// fmt.Errorf("...: %w", err).
var (
	// Authorization.
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotWhitelisted = errors.New("identity is not whitelisted")

	// Validation.
	ErrInvalidIdentity    = errors.New("invalid identity")
	ErrInvalidField       = errors.New("invalid config field")
	ErrInvalidPeriod      = errors.New("period must be greater than zero")
	ErrInvalidMinBet      = errors.New("minimum bet must be greater than zero")
	ErrInvalidOptions     = errors.New("invalid outcome options")
	ErrInvalidTimeRange   = errors.New("invalid time range")
	ErrInvalidQuestion    = errors.New("invalid question format")
	ErrInvalidDescription = errors.New("invalid description format")
	ErrInvalidBond        = errors.New("invalid resolution bond")
	ErrInvalidOdds        = errors.New("invalid odds")
	ErrInvalidVote        = errors.New("vote must be 0 or 1")
	ErrInvalidOption      = errors.New("option index out of range")
	ErrBetTooSmall        = errors.New("bet amount is below the minimum")
	ErrBetTooLarge        = errors.New("bet amount exceeds the maximum")

	// State preconditions.
	ErrInvalidMarketState    = errors.New("invalid market state for this operation")
	ErrInvalidProposalState  = errors.New("invalid proposal state for this operation")
	ErrMarketNotActive       = errors.New("market is not active")
	ErrMarketNotEnded        = errors.New("market has not ended yet")
	ErrMarketNotResolved     = errors.New("market is not resolved yet")
	ErrOrderNotCancellable   = errors.New("order cannot be cancelled")
	ErrChallengeWindowOpen   = errors.New("challenge period has not ended yet")
	ErrChallengeWindowClosed = errors.New("challenge period has ended")
	ErrVotingWindowOpen      = errors.New("voting period has not ended yet")
	ErrVotingWindowClosed    = errors.New("voting period has ended")

	// Funds.
	ErrNoFunds           = errors.New("no funds attached")
	ErrInsufficientFunds = errors.New("insufficient funds attached")
	ErrIncorrectBond     = errors.New("incorrect bond amount attached")

	// Not found.
	ErrNotFound = errors.New("not found")

	// Idempotency.
	ErrAlreadyRedeemed    = errors.New("matched bet already redeemed")
	ErrAlreadyVoted       = errors.New("identity has already voted")
	ErrAlreadyWhitelisted = errors.New("identity is already whitelisted")
	ErrProposalExists     = errors.New("a resolution proposal already exists for this market")

	// Resolution outcomes.
	ErrNoVotes   = errors.New("no votes were cast on the dispute")
	ErrNotWinner = errors.New("caller did not predict the winning outcome")

	// Infrastructure.
	ErrLockHeld    = errors.New("lock is already held")
	ErrRateLimited = errors.New("rate limited")
)

// ErrorKind classifies a failure so callers can tell "retry later" from
// "never retry" from "already done" without string matching.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindValidation
	KindStatePrecondition
	KindFunds
	KindNotFound
	KindIdempotency
	KindRateLimited
)

// Kind returns the ErrorKind for err by walking its wrap chain. Unrecognized
// errors are classified as internal.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotWhitelisted):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidIdentity), errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrInvalidMinBet),
		errors.Is(err, ErrInvalidOptions), errors.Is(err, ErrInvalidTimeRange),
		errors.Is(err, ErrInvalidQuestion), errors.Is(err, ErrInvalidDescription),
		errors.Is(err, ErrInvalidBond), errors.Is(err, ErrInvalidOdds),
		errors.Is(err, ErrInvalidVote), errors.Is(err, ErrInvalidOption),
		errors.Is(err, ErrBetTooSmall), errors.Is(err, ErrBetTooLarge):
		return KindValidation
	case errors.Is(err, ErrInvalidMarketState), errors.Is(err, ErrInvalidProposalState),
		errors.Is(err, ErrMarketNotActive), errors.Is(err, ErrMarketNotEnded),
		errors.Is(err, ErrMarketNotResolved), errors.Is(err, ErrOrderNotCancellable),
		errors.Is(err, ErrChallengeWindowOpen), errors.Is(err, ErrChallengeWindowClosed),
		errors.Is(err, ErrVotingWindowOpen), errors.Is(err, ErrVotingWindowClosed),
		errors.Is(err, ErrNoVotes), errors.Is(err, ErrNotWinner):
		return KindStatePrecondition
	case errors.Is(err, ErrNoFunds), errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrIncorrectBond):
		return KindFunds
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrAlreadyRedeemed), errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrAlreadyWhitelisted), errors.Is(err, ErrProposalExists):
		return KindIdempotency
	default:
		return KindInternal
	}
}
