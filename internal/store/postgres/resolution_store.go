package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predexchange/predex/internal/domain"
)

type proposalStore struct {
	tx pgx.Tx
}

func (s *proposalStore) Get(ctx context.Context, marketID int64) (domain.ResolutionProposal, error) {
	const query = `
		SELECT market_id, proposer, proposed_result, bond_amount,
		       proposal_time, challenge_deadline, status
		FROM resolution_proposals WHERE market_id = $1`

	var p domain.ResolutionProposal
	err := s.tx.QueryRow(ctx, query, marketID).Scan(
		&p.MarketID, &p.Proposer, &p.ProposedResult, &p.BondAmount,
		&p.ProposalTime, &p.ChallengeDeadline, &p.Status,
	)
	if err != nil {
		return domain.ResolutionProposal{}, mapNotFound(err)
	}
	return p, nil
}

func (s *proposalStore) Save(ctx context.Context, p domain.ResolutionProposal) error {
	const query = `
		INSERT INTO resolution_proposals (
			market_id, proposer, proposed_result, bond_amount,
			proposal_time, challenge_deadline, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (market_id) DO UPDATE SET status = EXCLUDED.status`

	_, err := s.tx.Exec(ctx, query,
		p.MarketID, p.Proposer, p.ProposedResult, p.BondAmount,
		p.ProposalTime, p.ChallengeDeadline, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: save proposal %d: %w", p.MarketID, err)
	}
	return nil
}

type disputeStore struct {
	tx pgx.Tx
}

func (s *disputeStore) Get(ctx context.Context, marketID int64) (domain.Dispute, error) {
	const query = `
		SELECT market_id, challenger, proposed_outcome, evidence, status, created_at
		FROM disputes WHERE market_id = $1`

	var d domain.Dispute
	err := s.tx.QueryRow(ctx, query, marketID).Scan(
		&d.MarketID, &d.Challenger, &d.ProposedOutcome, &d.Evidence, &d.Status, &d.CreatedAt,
	)
	if err != nil {
		return domain.Dispute{}, mapNotFound(err)
	}
	return d, nil
}

func (s *disputeStore) Save(ctx context.Context, d domain.Dispute) error {
	const query = `
		INSERT INTO disputes (
			market_id, challenger, proposed_outcome, evidence, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (market_id) DO UPDATE SET status = EXCLUDED.status`

	_, err := s.tx.Exec(ctx, query,
		d.MarketID, d.Challenger, d.ProposedOutcome, d.Evidence, string(d.Status), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save dispute %d: %w", d.MarketID, err)
	}
	return nil
}

type voteStore struct {
	tx pgx.Tx
}

func (s *voteStore) Has(ctx context.Context, marketID int64, voter domain.Identity) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE market_id = $1 AND voter = $2)`,
		marketID, voter,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check vote: %w", err)
	}
	return exists, nil
}

func (s *voteStore) Save(ctx context.Context, v domain.Vote) error {
	const query = `INSERT INTO votes (market_id, voter, outcome) VALUES ($1, $2, $3)`

	_, err := s.tx.Exec(ctx, query, v.MarketID, v.Voter, v.Outcome)
	if err != nil {
		return fmt.Errorf("postgres: save vote: %w", err)
	}
	return nil
}

func (s *voteStore) List(ctx context.Context, marketID int64) ([]domain.Vote, error) {
	rows, err := s.tx.Query(ctx,
		`SELECT market_id, voter, outcome FROM votes WHERE market_id = $1 ORDER BY voter`,
		marketID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.MarketID, &v.Voter, &v.Outcome); err != nil {
			return nil, fmt.Errorf("postgres: scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list votes rows: %w", err)
	}
	return votes, nil
}

func (s *voteStore) Increment(ctx context.Context, marketID int64, outcome int) error {
	const query = `
		INSERT INTO vote_tallies (market_id, outcome, count) VALUES ($1, $2, 1)
		ON CONFLICT (market_id, outcome) DO UPDATE SET count = vote_tallies.count + 1`

	_, err := s.tx.Exec(ctx, query, marketID, outcome)
	if err != nil {
		return fmt.Errorf("postgres: increment tally: %w", err)
	}
	return nil
}

func (s *voteStore) Tallies(ctx context.Context, marketID int64) ([]domain.VoteTally, error) {
	rows, err := s.tx.Query(ctx,
		`SELECT outcome, count FROM vote_tallies WHERE market_id = $1 ORDER BY outcome`,
		marketID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tallies: %w", err)
	}
	defer rows.Close()

	var tallies []domain.VoteTally
	for rows.Next() {
		var t domain.VoteTally
		if err := rows.Scan(&t.Outcome, &t.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan tally: %w", err)
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list tallies rows: %w", err)
	}
	return tallies, nil
}
