package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/predexchange/predex/internal/domain"
)

// Archiver implements domain.SettlementArchiver: it snapshots the full
// settlement record of a finished market (the market itself, every order,
// every matched bet, and the resolution trail) and uploads it to object
// storage as a single JSON document.
//
// Deletion of archived rows from the primary store is intentionally not
// performed here. The database stays the source of truth; the archive is a
// cold audit copy.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	store  domain.Store
}

// NewArchiver creates an Archiver over the given blob writer, reader, and
// store. The reader serves settlement readback and makes re-archival within
// the same month idempotent.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, store domain.Store) *Archiver {
	return &Archiver{writer: writer, reader: reader, store: store}
}

// marketArchive is the uploaded settlement document.
type marketArchive struct {
	ArchivedAt time.Time                  `json:"archived_at"`
	Market     domain.Market              `json:"market"`
	Orders     []domain.Order             `json:"orders"`
	Bets       []domain.MatchedBet        `json:"bets"`
	Proposal   *domain.ResolutionProposal `json:"proposal,omitempty"`
	Dispute    *domain.Dispute            `json:"dispute,omitempty"`
	Votes      []domain.Vote              `json:"votes,omitempty"`
	Tallies    []domain.VoteTally         `json:"tallies,omitempty"`
}

// ArchiveMarket exports a terminal market's settlement record and returns
// the object key it was stored under. Archiving a market that is still live
// fails with ErrInvalidMarketState.
func (a *Archiver) ArchiveMarket(ctx context.Context, marketID int64) (string, error) {
	doc := marketArchive{ArchivedAt: time.Now().UTC()}

	err := a.store.View(ctx, func(tx domain.StoreTx) error {
		m, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return err
		}
		if m.Status != domain.MarketStatusResolved && m.Status != domain.MarketStatusCanceled {
			return domain.ErrInvalidMarketState
		}
		doc.Market = m

		if doc.Orders, err = tx.Orders().ListByMarket(ctx, marketID, domain.ListOpts{}); err != nil {
			return err
		}
		if doc.Bets, err = tx.Bets().List(ctx, &marketID, nil, domain.ListOpts{}); err != nil {
			return err
		}

		proposal, err := tx.Proposals().Get(ctx, marketID)
		switch {
		case err == nil:
			doc.Proposal = &proposal
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		dispute, err := tx.Disputes().Get(ctx, marketID)
		switch {
		case err == nil:
			doc.Dispute = &dispute
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if doc.Votes, err = tx.Votes().List(ctx, marketID); err != nil {
			return err
		}
		if doc.Tallies, err = tx.Votes().Tallies(ctx, marketID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d: %w", marketID, err)
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d marshal: %w", marketID, err)
	}

	// A market's settlement record is immutable once it reaches a terminal
	// state, so an archive already present for this month stands as is.
	key := settlementKey(marketID, doc.ArchivedAt)
	if ok, err := a.reader.Exists(ctx, key); err != nil {
		return "", fmt.Errorf("s3blob: archive market %d check: %w", marketID, err)
	} else if ok {
		return key, nil
	}
	if err := a.writer.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive market %d upload: %w", marketID, err)
	}
	return key, nil
}

// ReadSettlement fetches a market's most recent settlement document from
// object storage. Returns domain.ErrNotFound when the market has never been
// archived.
func (a *Archiver) ReadSettlement(ctx context.Context, marketID int64) ([]byte, string, error) {
	infos, err := a.reader.List(ctx, "settlements/")
	if err != nil {
		return nil, "", fmt.Errorf("s3blob: read settlement %d: %w", marketID, err)
	}

	suffix := fmt.Sprintf("/market-%d.json", marketID)
	var latest *domain.BlobInfo
	for i := range infos {
		if !strings.HasSuffix(infos[i].Path, suffix) {
			continue
		}
		if latest == nil || infos[i].LastModified.After(latest.LastModified) {
			latest = &infos[i]
		}
	}
	if latest == nil {
		return nil, "", fmt.Errorf("s3blob: read settlement %d: %w", marketID, domain.ErrNotFound)
	}

	body, err := a.reader.Get(ctx, latest.Path)
	if err != nil {
		return nil, "", fmt.Errorf("s3blob: read settlement %d: %w", marketID, err)
	}
	defer body.Close()

	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("s3blob: read settlement %d: %w", marketID, err)
	}
	return payload, latest.Path, nil
}

// settlementKey builds the object key for a market's settlement document,
// partitioned by year-month of archival.
//
//	settlements/2026-09/market-42.json
func settlementKey(marketID int64, at time.Time) string {
	return fmt.Sprintf("settlements/%s/market-%d.json", at.Format("2006-01"), marketID)
}
