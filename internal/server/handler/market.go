package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
)

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, call domain.CallInfo, p engine.CreateMarketParams) (engine.CreateMarketResult, error)
	Cancel(ctx context.Context, call domain.CallInfo, marketID int64) (engine.CancelMarketResult, error)
	Close(ctx context.Context, call domain.CallInfo, marketID int64) (engine.CloseMarketResult, error)
	Get(ctx context.Context, id int64) (domain.Market, error)
	List(ctx context.Context, status *domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	Statistics(ctx context.Context, marketID int64) (domain.MarketStatistics, error)
}

// MarketHandler serves market lifecycle HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

type createMarketRequest struct {
	callRequest
	Question         string   `json:"question"`
	Description      string   `json:"description"`
	Options          []string `json:"options"`
	Category         string   `json:"category"`
	StartTime        int64    `json:"start_time"`
	EndTime          int64    `json:"end_time"`
	ResolutionBond   int64    `json:"resolution_bond"`
	ResolutionReward int64    `json:"resolution_reward"`
}

// CreateMarket creates a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.markets.Create(r.Context(), call, engine.CreateMarketParams{
		Question:         req.Question,
		Description:      req.Description,
		Options:          req.Options,
		Category:         req.Category,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		ResolutionBond:   req.ResolutionBond,
		ResolutionReward: req.ResolutionReward,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: create market failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// listMarketsResponse wraps the list endpoint output with paging metadata.
type listMarketsResponse struct {
	Markets    []domain.Market `json:"markets"`
	Limit      int             `json:"limit"`
	StartAfter int64           `json:"start_after"`
}

// ListMarkets returns markets with cursor pagination, optionally filtered by
// status.
// GET /api/markets?status=active&limit=50&start_after=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var status *domain.MarketStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := domain.MarketStatus(v)
		switch st {
		case domain.MarketStatusActive, domain.MarketStatusClosed, domain.MarketStatusCanceled,
			domain.MarketStatusInDispute, domain.MarketStatusResolved:
			status = &st
		default:
			writeError(w, http.StatusBadRequest, "unknown market status")
			return
		}
	}

	markets, err := h.markets.List(r.Context(), status, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets:    markets,
		Limit:      opts.Limit,
		StartAfter: opts.StartAfter,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CancelMarket cancels a market and refunds all open interest.
// POST /api/markets/{id}/cancel
func (h *MarketHandler) CancelMarket(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.markets.Cancel(r.Context(), call, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CloseMarket closes a market whose end time has passed.
// POST /api/markets/{id}/close
func (h *MarketHandler) CloseMarket(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.markets.Close(r.Context(), call, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetStatistics returns aggregate activity for a market.
// GET /api/markets/{id}/statistics
func (h *MarketHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	stats, err := h.markets.Statistics(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
