package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
)

// ResolutionService defines the methods the resolution handler requires
// from the service layer.
type ResolutionService interface {
	Propose(ctx context.Context, call domain.CallInfo, p engine.ProposeResultParams) (engine.ProposeResultResult, error)
	Dispute(ctx context.Context, call domain.CallInfo, p engine.RaiseDisputeParams) error
	Vote(ctx context.Context, call domain.CallInfo, marketID int64, outcome int) error
	Resolve(ctx context.Context, call domain.CallInfo, marketID int64) (engine.ResolveDisputeResult, error)
	RedeemWinnings(ctx context.Context, call domain.CallInfo, betID int64) (engine.RedeemWinningsResult, error)
	RedeemBond(ctx context.Context, call domain.CallInfo, marketID int64) (engine.RedeemBondResult, error)
	Proposal(ctx context.Context, marketID int64) (domain.ResolutionProposal, error)
	GetDispute(ctx context.Context, marketID int64) (domain.Dispute, error)
	Votes(ctx context.Context, marketID int64) ([]domain.Vote, []domain.VoteTally, error)
	Settlement(ctx context.Context, marketID int64) ([]byte, string, error)
}

// ResolutionHandler serves proposal, dispute, vote, and redemption
// endpoints.
type ResolutionHandler struct {
	resolutions ResolutionService
	logger      *slog.Logger
}

// NewResolutionHandler creates a ResolutionHandler with the given service
// and logger.
func NewResolutionHandler(resolutions ResolutionService, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{
		resolutions: resolutions,
		logger:      logger,
	}
}

type proposeRequest struct {
	callRequest
	Result int `json:"result"`
}

// ProposeResult opens the resolution phase with a bonded outcome claim.
// POST /api/markets/{id}/propose
func (h *ResolutionHandler) ProposeResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req proposeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.resolutions.Propose(r.Context(), call, engine.ProposeResultParams{
		MarketID: id,
		Result:   req.Result,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type disputeRequest struct {
	callRequest
	ProposedOutcome int    `json:"proposed_outcome"`
	Evidence        string `json:"evidence"`
}

// RaiseDispute challenges the active proposal.
// POST /api/markets/{id}/dispute
func (h *ResolutionHandler) RaiseDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req disputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.resolutions.Dispute(r.Context(), call, engine.RaiseDisputeParams{
		MarketID:        id,
		ProposedOutcome: req.ProposedOutcome,
		Evidence:        req.Evidence,
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"market_id": id, "status": "disputed"})
}

type voteRequest struct {
	callRequest
	Outcome int `json:"outcome"`
}

// CastVote records the caller's vote on a disputed market.
// POST /api/markets/{id}/vote
func (h *ResolutionHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.resolutions.Vote(r.Context(), call, id, req.Outcome); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"market_id": id, "outcome": req.Outcome})
}

// ResolveDispute finalizes a market after its windows have run out.
// POST /api/markets/{id}/resolve
func (h *ResolutionHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req callRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.resolutions.Resolve(r.Context(), call, id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: resolve failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RedeemWinnings pays out one matched bet on a resolved market.
// POST /api/bets/{id}/redeem
func (h *ResolutionHandler) RedeemWinnings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bet id")
		return
	}
	var req callRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.resolutions.RedeemWinnings(r.Context(), call, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RedeemBond returns the resolution bond to the winning side.
// POST /api/markets/{id}/redeem-bond
func (h *ResolutionHandler) RedeemBond(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req callRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.resolutions.RedeemBond(r.Context(), call, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetProposal returns a market's resolution proposal.
// GET /api/markets/{id}/proposal
func (h *ResolutionHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	p, err := h.resolutions.Proposal(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetDispute returns a market's dispute.
// GET /api/markets/{id}/dispute
func (h *ResolutionHandler) GetDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	d, err := h.resolutions.GetDispute(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetSettlement returns the archived settlement document of a resolved or
// canceled market.
// GET /api/markets/{id}/settlement
func (h *ResolutionHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	doc, key, err := h.resolutions.Settlement(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key":        key,
		"settlement": json.RawMessage(doc),
	})
}

// GetVotes returns a market's votes and tallies.
// GET /api/markets/{id}/votes
func (h *ResolutionHandler) GetVotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	votes, tallies, err := h.resolutions.Votes(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": votes, "tallies": tallies})
}
