package domain

import (
	"context"
	"time"
)

// ListOpts provides cursor pagination for list queries. StartAfter is an
// exclusive id cursor; zero means "from the beginning".
type ListOpts struct {
	Limit      int
	StartAfter int64
}

// Clock supplies the current time to the engine so that time-guarded
// transitions are testable and host-driven.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Store is the transactional state store. Exec runs fn inside one
// all-or-nothing transaction with read-your-writes consistency: if fn
// returns an error, every mutation made through the StoreTx is discarded.
// View runs fn in a read-only transaction.
type Store interface {
	Exec(ctx context.Context, fn func(tx StoreTx) error) error
	View(ctx context.Context, fn func(tx StoreTx) error) error
}

// StoreTx groups the per-entity stores scoped to one transaction.
type StoreTx interface {
	Config() ConfigStore
	Markets() MarketStore
	Orders() OrderStore
	Bets() BetStore
	Proposals() ProposalStore
	Disputes() DisputeStore
	Votes() VoteStore
	Whitelist() WhitelistStore
	Transfers() TransferStore
	Audit() AuditStore
}

// ConfigStore persists the singleton exchange config.
type ConfigStore interface {
	Get(ctx context.Context) (ExchangeConfig, error)
	Save(ctx context.Context, cfg ExchangeConfig) error
}

// MarketStore persists markets. NextID draws the next value from the
// 1-based monotonic market sequence.
type MarketStore interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, m Market) error
	Get(ctx context.Context, id int64) (Market, error)
	Update(ctx context.Context, m Market) error
	List(ctx context.Context, status *MarketStatus, opts ListOpts) ([]Market, error)
}

// OrderStore persists orders. Orders are an append-only ledger of intent:
// they are updated in place but never removed.
type OrderStore interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id int64) (Order, error)
	Update(ctx context.Context, o Order) error

	// ListOpen returns every Open/PartiallyFilled order in the market,
	// ascending by id. Used by the refund paths.
	ListOpen(ctx context.Context, marketID int64) ([]Order, error)

	// ListMatchable returns Open/PartiallyFilled orders with a nonzero
	// unfilled remainder on the given side of (market, option), ascending by
	// id. This is the matching engine's candidate scan.
	ListMatchable(ctx context.Context, marketID int64, optionID int, side OrderSide) ([]Order, error)

	// ListByUser returns a user's orders, optionally narrowed to one market.
	ListByUser(ctx context.Context, user Identity, marketID *int64, opts ListOpts) ([]Order, error)

	// ListByMarket returns every order in the market regardless of status,
	// ascending by id. Used by the settlement archiver.
	ListByMarket(ctx context.Context, marketID int64, opts ListOpts) ([]Order, error)

	// ListBook returns the open book for a market (Open/PartiallyFilled with
	// remainder), optionally narrowed to one side.
	ListBook(ctx context.Context, marketID int64, side *OrderSide, opts ListOpts) ([]Order, error)

	CountByMarket(ctx context.Context, marketID int64) (int64, error)
}

// BetStore persists matched bets.
type BetStore interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, b MatchedBet) error
	Get(ctx context.Context, id int64) (MatchedBet, error)
	Update(ctx context.Context, b MatchedBet) error
	ListUnredeemed(ctx context.Context, marketID int64) ([]MatchedBet, error)
	List(ctx context.Context, marketID *int64, user *Identity, opts ListOpts) ([]MatchedBet, error)
	VolumeByMarket(ctx context.Context, marketID int64) (int64, error)
}

// ProposalStore persists resolution proposals, keyed by market id.
type ProposalStore interface {
	Get(ctx context.Context, marketID int64) (ResolutionProposal, error)
	Save(ctx context.Context, p ResolutionProposal) error
}

// DisputeStore persists disputes, keyed by market id.
type DisputeStore interface {
	Get(ctx context.Context, marketID int64) (Dispute, error)
	Save(ctx context.Context, d Dispute) error
}

// VoteStore persists votes and their running tallies.
type VoteStore interface {
	Has(ctx context.Context, marketID int64, voter Identity) (bool, error)
	Save(ctx context.Context, v Vote) error
	List(ctx context.Context, marketID int64) ([]Vote, error)

	// Increment bumps the tally for (market, outcome) by one.
	Increment(ctx context.Context, marketID int64, outcome int) error

	// Tallies returns the per-outcome counts for a market, ascending by
	// outcome index. The ordering is part of the resolution tie-break
	// contract.
	Tallies(ctx context.Context, marketID int64) ([]VoteTally, error)
}

// WhitelistStore persists whitelist membership.
type WhitelistStore interface {
	Has(ctx context.Context, id Identity) (bool, error)
	Add(ctx context.Context, id Identity) error
	Remove(ctx context.Context, id Identity) error
	List(ctx context.Context, opts ListOpts) ([]Identity, error)
}

// TransferStore queues transfer instructions. Instructions queued within a
// transaction commit or roll back with it; the external ledger drains the
// queue.
type TransferStore interface {
	Queue(ctx context.Context, t Transfer) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
