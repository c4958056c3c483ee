// Package memory provides an in-process implementation of the domain store.
// Transactions copy the whole state up front and swap it back on commit, so
// a failed transaction leaves no trace. It backs the engine's tests and the
// single-node local mode; the postgres store is the production counterpart.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/predexchange/predex/internal/domain"
)

// Store is the in-memory domain.Store. Safe for concurrent use; write
// transactions serialize on one mutex.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	config    *domain.ExchangeConfig
	markets   map[int64]domain.Market
	orders    map[int64]domain.Order
	bets      map[int64]domain.MatchedBet
	proposals map[int64]domain.ResolutionProposal
	disputes  map[int64]domain.Dispute
	votes     map[int64]map[domain.Identity]domain.Vote
	tallies   map[int64]map[int]int64
	whitelist map[domain.Identity]struct{}
	transfers []domain.Transfer
	audit     []domain.AuditEntry

	marketSeq int64
	orderSeq  int64
	betSeq    int64
	auditSeq  int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		markets:   make(map[int64]domain.Market),
		orders:    make(map[int64]domain.Order),
		bets:      make(map[int64]domain.MatchedBet),
		proposals: make(map[int64]domain.ResolutionProposal),
		disputes:  make(map[int64]domain.Dispute),
		votes:     make(map[int64]map[domain.Identity]domain.Vote),
		tallies:   make(map[int64]map[int]int64),
		whitelist: make(map[domain.Identity]struct{}),
	}
}

func (s *state) clone() *state {
	c := &state{
		markets:   maps.Clone(s.markets),
		orders:    maps.Clone(s.orders),
		bets:      maps.Clone(s.bets),
		proposals: maps.Clone(s.proposals),
		disputes:  maps.Clone(s.disputes),
		votes:     make(map[int64]map[domain.Identity]domain.Vote, len(s.votes)),
		tallies:   make(map[int64]map[int]int64, len(s.tallies)),
		whitelist: maps.Clone(s.whitelist),
		transfers: slices.Clone(s.transfers),
		audit:     slices.Clone(s.audit),
		marketSeq: s.marketSeq,
		orderSeq:  s.orderSeq,
		betSeq:    s.betSeq,
		auditSeq:  s.auditSeq,
	}
	if s.config != nil {
		cfg := *s.config
		c.config = &cfg
	}
	for id, vs := range s.votes {
		c.votes[id] = maps.Clone(vs)
	}
	for id, ts := range s.tallies {
		c.tallies[id] = maps.Clone(ts)
	}
	return c
}

// Exec runs fn against a copy of the state and installs the copy only when
// fn succeeds.
func (s *Store) Exec(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&storeTx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// View runs fn against a copy of the state and discards the copy, so even a
// misbehaving fn cannot mutate the store.
func (s *Store) View(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	working := s.state.clone()
	s.mu.Unlock()

	return fn(&storeTx{state: working})
}

// DrainTransfers returns and clears the queued transfer instructions. The
// test harness and the local-mode ledger use it as the payout sink.
func (s *Store) DrainTransfers() []domain.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state.transfers
	s.state.transfers = nil
	return out
}

type storeTx struct {
	state *state
}

func (t *storeTx) Config() domain.ConfigStore       { return (*configStore)(t) }
func (t *storeTx) Markets() domain.MarketStore      { return (*marketStore)(t) }
func (t *storeTx) Orders() domain.OrderStore        { return (*orderStore)(t) }
func (t *storeTx) Bets() domain.BetStore            { return (*betStore)(t) }
func (t *storeTx) Proposals() domain.ProposalStore  { return (*proposalStore)(t) }
func (t *storeTx) Disputes() domain.DisputeStore    { return (*disputeStore)(t) }
func (t *storeTx) Votes() domain.VoteStore          { return (*voteStore)(t) }
func (t *storeTx) Whitelist() domain.WhitelistStore { return (*whitelistStore)(t) }
func (t *storeTx) Transfers() domain.TransferStore  { return (*transferStore)(t) }
func (t *storeTx) Audit() domain.AuditStore         { return (*auditStore)(t) }

type configStore storeTx

func (s *configStore) Get(ctx context.Context) (domain.ExchangeConfig, error) {
	if s.state.config == nil {
		return domain.ExchangeConfig{}, domain.ErrNotFound
	}
	return *s.state.config, nil
}

func (s *configStore) Save(ctx context.Context, cfg domain.ExchangeConfig) error {
	s.state.config = &cfg
	return nil
}

type marketStore storeTx

func (s *marketStore) NextID(ctx context.Context) (int64, error) {
	s.state.marketSeq++
	return s.state.marketSeq, nil
}

func (s *marketStore) Create(ctx context.Context, m domain.Market) error {
	s.state.markets[m.ID] = m
	return nil
}

func (s *marketStore) Get(ctx context.Context, id int64) (domain.Market, error) {
	m, ok := s.state.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *marketStore) Update(ctx context.Context, m domain.Market) error {
	if _, ok := s.state.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.state.markets[m.ID] = m
	return nil
}

func (s *marketStore) List(ctx context.Context, status *domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, id := range sortedKeys(s.state.markets) {
		m := s.state.markets[id]
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, m)
	}
	return paginate(out, opts, func(m domain.Market) int64 { return m.ID }), nil
}

type orderStore storeTx

func (s *orderStore) NextID(ctx context.Context) (int64, error) {
	s.state.orderSeq++
	return s.state.orderSeq, nil
}

func (s *orderStore) Create(ctx context.Context, o domain.Order) error {
	s.state.orders[o.ID] = o
	return nil
}

func (s *orderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	o, ok := s.state.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *orderStore) Update(ctx context.Context, o domain.Order) error {
	if _, ok := s.state.orders[o.ID]; !ok {
		return domain.ErrNotFound
	}
	s.state.orders[o.ID] = o
	return nil
}

func open(o domain.Order) bool {
	return o.Status == domain.OrderStatusOpen || o.Status == domain.OrderStatusPartiallyFilled
}

func (s *orderStore) ListOpen(ctx context.Context, marketID int64) ([]domain.Order, error) {
	var out []domain.Order
	for _, id := range sortedKeys(s.state.orders) {
		o := s.state.orders[id]
		if o.MarketID == marketID && open(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *orderStore) ListMatchable(ctx context.Context, marketID int64, optionID int, side domain.OrderSide) ([]domain.Order, error) {
	var out []domain.Order
	for _, id := range sortedKeys(s.state.orders) {
		o := s.state.orders[id]
		if o.MarketID == marketID && o.OptionID == optionID && o.Side == side && open(o) && o.Remaining() > 0 {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *orderStore) ListByUser(ctx context.Context, user domain.Identity, marketID *int64, opts domain.ListOpts) ([]domain.Order, error) {
	var out []domain.Order
	for _, id := range sortedKeys(s.state.orders) {
		o := s.state.orders[id]
		if o.Creator != user {
			continue
		}
		if marketID != nil && o.MarketID != *marketID {
			continue
		}
		out = append(out, o)
	}
	return paginate(out, opts, func(o domain.Order) int64 { return o.ID }), nil
}

func (s *orderStore) ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Order, error) {
	var out []domain.Order
	for _, id := range sortedKeys(s.state.orders) {
		o := s.state.orders[id]
		if o.MarketID == marketID {
			out = append(out, o)
		}
	}
	return paginate(out, opts, func(o domain.Order) int64 { return o.ID }), nil
}

func (s *orderStore) ListBook(ctx context.Context, marketID int64, side *domain.OrderSide, opts domain.ListOpts) ([]domain.Order, error) {
	var out []domain.Order
	for _, id := range sortedKeys(s.state.orders) {
		o := s.state.orders[id]
		if o.MarketID != marketID || !open(o) || o.Remaining() == 0 {
			continue
		}
		if side != nil && o.Side != *side {
			continue
		}
		out = append(out, o)
	}
	return paginate(out, opts, func(o domain.Order) int64 { return o.ID }), nil
}

func (s *orderStore) CountByMarket(ctx context.Context, marketID int64) (int64, error) {
	var n int64
	for _, o := range s.state.orders {
		if o.MarketID == marketID {
			n++
		}
	}
	return n, nil
}

type betStore storeTx

func (s *betStore) NextID(ctx context.Context) (int64, error) {
	s.state.betSeq++
	return s.state.betSeq, nil
}

func (s *betStore) Create(ctx context.Context, b domain.MatchedBet) error {
	s.state.bets[b.ID] = b
	return nil
}

func (s *betStore) Get(ctx context.Context, id int64) (domain.MatchedBet, error) {
	b, ok := s.state.bets[id]
	if !ok {
		return domain.MatchedBet{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *betStore) Update(ctx context.Context, b domain.MatchedBet) error {
	if _, ok := s.state.bets[b.ID]; !ok {
		return domain.ErrNotFound
	}
	s.state.bets[b.ID] = b
	return nil
}

func (s *betStore) ListUnredeemed(ctx context.Context, marketID int64) ([]domain.MatchedBet, error) {
	var out []domain.MatchedBet
	for _, id := range sortedKeys(s.state.bets) {
		b := s.state.bets[id]
		if b.MarketID == marketID && !b.Redeemed {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *betStore) List(ctx context.Context, marketID *int64, user *domain.Identity, opts domain.ListOpts) ([]domain.MatchedBet, error) {
	var out []domain.MatchedBet
	for _, id := range sortedKeys(s.state.bets) {
		b := s.state.bets[id]
		if marketID != nil && b.MarketID != *marketID {
			continue
		}
		if user != nil && b.BackUser != *user && b.LayUser != *user {
			continue
		}
		out = append(out, b)
	}
	return paginate(out, opts, func(b domain.MatchedBet) int64 { return b.ID }), nil
}

func (s *betStore) VolumeByMarket(ctx context.Context, marketID int64) (int64, error) {
	var vol int64
	for _, b := range s.state.bets {
		if b.MarketID == marketID {
			vol += b.Amount
		}
	}
	return vol, nil
}

type proposalStore storeTx

func (s *proposalStore) Get(ctx context.Context, marketID int64) (domain.ResolutionProposal, error) {
	p, ok := s.state.proposals[marketID]
	if !ok {
		return domain.ResolutionProposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *proposalStore) Save(ctx context.Context, p domain.ResolutionProposal) error {
	s.state.proposals[p.MarketID] = p
	return nil
}

type disputeStore storeTx

func (s *disputeStore) Get(ctx context.Context, marketID int64) (domain.Dispute, error) {
	d, ok := s.state.disputes[marketID]
	if !ok {
		return domain.Dispute{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *disputeStore) Save(ctx context.Context, d domain.Dispute) error {
	s.state.disputes[d.MarketID] = d
	return nil
}

type voteStore storeTx

func (s *voteStore) Has(ctx context.Context, marketID int64, voter domain.Identity) (bool, error) {
	_, ok := s.state.votes[marketID][voter]
	return ok, nil
}

func (s *voteStore) Save(ctx context.Context, v domain.Vote) error {
	if s.state.votes[v.MarketID] == nil {
		s.state.votes[v.MarketID] = make(map[domain.Identity]domain.Vote)
	}
	s.state.votes[v.MarketID][v.Voter] = v
	return nil
}

func (s *voteStore) List(ctx context.Context, marketID int64) ([]domain.Vote, error) {
	vs := s.state.votes[marketID]
	out := make([]domain.Vote, 0, len(vs))
	for _, voter := range slices.Sorted(maps.Keys(vs)) {
		out = append(out, vs[voter])
	}
	return out, nil
}

func (s *voteStore) Increment(ctx context.Context, marketID int64, outcome int) error {
	if s.state.tallies[marketID] == nil {
		s.state.tallies[marketID] = make(map[int]int64)
	}
	s.state.tallies[marketID][outcome]++
	return nil
}

func (s *voteStore) Tallies(ctx context.Context, marketID int64) ([]domain.VoteTally, error) {
	ts := s.state.tallies[marketID]
	out := make([]domain.VoteTally, 0, len(ts))
	for _, outcome := range slices.Sorted(maps.Keys(ts)) {
		out = append(out, domain.VoteTally{Outcome: outcome, Count: ts[outcome]})
	}
	return out, nil
}

type whitelistStore storeTx

func (s *whitelistStore) Has(ctx context.Context, id domain.Identity) (bool, error) {
	_, ok := s.state.whitelist[id]
	return ok, nil
}

func (s *whitelistStore) Add(ctx context.Context, id domain.Identity) error {
	s.state.whitelist[id] = struct{}{}
	return nil
}

func (s *whitelistStore) Remove(ctx context.Context, id domain.Identity) error {
	delete(s.state.whitelist, id)
	return nil
}

func (s *whitelistStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Identity, error) {
	ids := slices.Sorted(maps.Keys(s.state.whitelist))
	if opts.StartAfter != 0 {
		// Identity cursors are not numeric; callers page the whitelist by
		// limit only.
		return ids, nil
	}
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}
	return ids, nil
}

type transferStore storeTx

func (s *transferStore) Queue(ctx context.Context, t domain.Transfer) error {
	s.state.transfers = append(s.state.transfers, t)
	return nil
}

type auditStore storeTx

func (s *auditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	s.state.auditSeq++
	s.state.audit = append(s.state.audit, domain.AuditEntry{
		ID:        s.state.auditSeq,
		Event:     event,
		Detail:    maps.Clone(detail),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *auditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	out := slices.Clone(s.state.audit)
	return paginate(out, opts, func(e domain.AuditEntry) int64 { return e.ID }), nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}

func paginate[T any](items []T, opts domain.ListOpts, id func(T) int64) []T {
	out := items
	if opts.StartAfter != 0 {
		i := 0
		for i < len(out) && id(out[i]) <= opts.StartAfter {
			i++
		}
		out = out[i:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
