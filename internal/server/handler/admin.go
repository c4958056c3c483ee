package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/predexchange/predex/internal/domain"
)

// AdminService defines the methods the admin handler requires from the
// service layer.
type AdminService interface {
	Config(ctx context.Context) (domain.ExchangeConfig, error)
	UpdateConfig(ctx context.Context, call domain.CallInfo, field, value string) error
	AddToWhitelist(ctx context.Context, call domain.CallInfo, id domain.Identity) error
	RemoveFromWhitelist(ctx context.Context, call domain.CallInfo, id domain.Identity) error
	IsWhitelisted(ctx context.Context, id domain.Identity) (bool, error)
	WhitelistMembers(ctx context.Context, opts domain.ListOpts) ([]domain.Identity, error)
	AuditLog(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
	TransferLog(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error)
}

// AdminHandler serves exchange configuration, whitelist, and audit
// endpoints.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and
// logger.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

// GetConfig returns the live exchange configuration.
// GET /api/admin/config
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.admin.Config(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type updateConfigRequest struct {
	callRequest
	Field string `json:"field"`
	Value string `json:"value"`
}

// UpdateConfig changes one exchange configuration field.
// PATCH /api/admin/config
func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Field == "" {
		writeError(w, http.StatusBadRequest, "field is required")
		return
	}

	if err := h.admin.UpdateConfig(r.Context(), call, req.Field, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "handler: config updated",
		slog.String("field", req.Field),
		slog.String("caller", string(call.Caller)),
	)
	writeJSON(w, http.StatusOK, map[string]any{"field": req.Field, "value": req.Value})
}

type whitelistRequest struct {
	callRequest
	Voter string `json:"voter"`
}

// AddToWhitelist grants an identity the right to vote on disputes.
// POST /api/admin/whitelist
func (h *AdminHandler) AddToWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	call, err := req.callInfo()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	voter, err := domain.ParseIdentity(req.Voter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.admin.AddToWhitelist(r.Context(), call, voter); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"voter": voter})
}

// RemoveFromWhitelist revokes an identity's voting rights.
// DELETE /api/admin/whitelist/{voter}
func (h *AdminHandler) RemoveFromWhitelist(w http.ResponseWriter, r *http.Request) {
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
	voter, err := domain.ParseIdentity(r.PathValue("voter"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.admin.RemoveFromWhitelist(r.Context(), call, voter); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voter": voter})
}

// ListWhitelist returns the whitelisted voters.
// GET /api/admin/whitelist
func (h *AdminHandler) ListWhitelist(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	members, err := h.admin.WhitelistMembers(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voters": members, "limit": opts.Limit})
}

// CheckWhitelist reports whether one identity may vote.
// GET /api/admin/whitelist/{voter}
func (h *AdminHandler) CheckWhitelist(w http.ResponseWriter, r *http.Request) {
	voter, err := domain.ParseIdentity(r.PathValue("voter"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ok, err := h.admin.IsWhitelisted(r.Context(), voter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voter": voter, "whitelisted": ok})
}

// GetAuditLog returns audit entries ascending by id.
// GET /api/admin/audit
func (h *AdminHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	entries, err := h.admin.AuditLog(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     entries,
		"limit":       opts.Limit,
		"start_after": opts.StartAfter,
	})
}

// transferEntry is one queued transfer instruction read off the settlement
// stream, keyed by its stream id for cursoring.
type transferEntry struct {
	ID       string          `json:"id"`
	Transfer json.RawMessage `json:"transfer"`
}

// GetTransferLog returns queued transfer instructions from the durable
// settlement stream. ?last_id cursors past already-seen entries.
// GET /api/admin/transfers
func (h *AdminHandler) GetTransferLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := 100
	if v := q.Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}
	if count > 1000 {
		count = 1000
	}

	msgs, err := h.admin.TransferLog(r.Context(), q.Get("last_id"), count)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]transferEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, transferEntry{ID: m.ID, Transfer: json.RawMessage(m.Payload)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": entries, "count": count})
}
