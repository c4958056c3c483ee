package domain

// ProposalStatus tracks the resolution proposal lifecycle.
type ProposalStatus string

const (
	ProposalStatusActive     ProposalStatus = "active"
	ProposalStatusChallenged ProposalStatus = "challenged"
	ProposalStatusResolved   ProposalStatus = "resolved"
)

// ResolutionProposal is the bonded claim of a market's outcome. At most one
// ever exists per market, for the market's whole lifetime.
type ResolutionProposal struct {
	MarketID          int64
	Proposer          Identity
	ProposedResult    int
	BondAmount        int64
	ProposalTime      int64
	ChallengeDeadline int64 // ProposalTime + challenging period
	Status            ProposalStatus
}

// DisputeStatus tracks the dispute lifecycle.
type DisputeStatus string

const (
	DisputeStatusActive   DisputeStatus = "active"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute is the bonded challenge against an active proposal. At most one
// ever exists per market.
type Dispute struct {
	MarketID        int64
	Challenger      Identity
	ProposedOutcome int
	Evidence        string
	Status          DisputeStatus
	CreatedAt       int64
}

// Vote records one whitelisted identity's dispute vote. Votes are binary
// (outcome 0 or 1) regardless of how many options the market has.
type Vote struct {
	MarketID int64
	Voter    Identity
	Outcome  int
}

// VoteTally is the running count for one (market, outcome) pair.
type VoteTally struct {
	Outcome int
	Count   int64
}
