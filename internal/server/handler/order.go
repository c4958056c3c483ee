package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/engine"
)

// OrderService defines the methods the order handler requires from the
// service layer.
type OrderService interface {
	Place(ctx context.Context, call domain.CallInfo, p engine.PlaceOrderParams) (engine.PlaceOrderResult, error)
	Cancel(ctx context.Context, call domain.CallInfo, orderID int64) (engine.CancelOrderResult, error)
	Get(ctx context.Context, id int64) (domain.Order, error)
	ListByUser(ctx context.Context, user domain.Identity, marketID *int64, opts domain.ListOpts) ([]domain.Order, error)
	Book(ctx context.Context, marketID int64, side *domain.OrderSide, opts domain.ListOpts) ([]domain.Order, error)
	Bets(ctx context.Context, marketID *int64, user *domain.Identity, opts domain.ListOpts) ([]domain.MatchedBet, error)
}

// OrderHandler serves order and bet HTTP endpoints.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

type placeOrderRequest struct {
	callRequest
	MarketID int64  `json:"market_id"`
	OptionID int    `json:"option_id"`
	Side     string `json:"side"`
	Amount   int64  `json:"amount"`
	Odds     int64  `json:"odds"`
}

// PlaceOrder places a back or lay order.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.orders.Place(r.Context(), call, engine.PlaceOrderParams{
		MarketID: req.MarketID,
		OptionID: req.OptionID,
		Side:     domain.OrderSide(req.Side),
		Amount:   req.Amount,
		Odds:     req.Odds,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: place order failed",
			slog.Int64("market_id", req.MarketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	if res.MarketClosed {
		// The market expired before the order could rest; the state change
		// committed, so this is a 200 with a notice rather than an error.
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// CancelOrder cancels the caller's order.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
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

	res, err := h.orders.Cancel(r.Context(), call, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetOrder returns a single order by its ID.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListOrders returns a user's orders, optionally narrowed to one market.
// GET /api/orders?user=0x..&market_id=1
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	user, err := domain.ParseIdentity(q.Get("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid user")
		return
	}
	marketID, err := optionalID(q.Get("market_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market_id")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), user, marketID, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GetBook returns the open order book for a market, optionally narrowed to
// one side.
// GET /api/markets/{id}/book?side=back
func (h *OrderHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var side *domain.OrderSide
	if v := r.URL.Query().Get("side"); v != "" {
		s := domain.OrderSide(v)
		if s != domain.OrderSideBack && s != domain.OrderSideLay {
			writeError(w, http.StatusBadRequest, "unknown order side")
			return
		}
		side = &s
	}

	orders, err := h.orders.Book(r.Context(), id, side, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// ListBets returns matched bets filtered by market and/or participant.
// GET /api/bets?market_id=1&user=0x..
func (h *OrderHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	marketID, err := optionalID(q.Get("market_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market_id")
		return
	}
	var user *domain.Identity
	if v := q.Get("user"); v != "" {
		id, err := domain.ParseIdentity(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user")
			return
		}
		user = &id
	}

	bets, err := h.orders.Bets(r.Context(), marketID, user, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": bets})
}
