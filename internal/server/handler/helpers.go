package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/predexchange/predex/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error to its HTTP status and sends the
// error message. Internal errors are masked.
func writeDomainError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// errorStatus maps the domain error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch domain.Kind(err) {
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindValidation, domain.KindFunds:
		return http.StatusBadRequest
	case domain.KindStatePrecondition, domain.KindIdempotency:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		if errors.Is(err, domain.ErrLockHeld) {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	}
}

// callRequest carries the caller identity and attached funds that every
// mutating endpoint requires in its JSON body.
type callRequest struct {
	Caller string `json:"caller"`
	Funds  []struct {
		Denom  string `json:"denom"`
		Amount int64  `json:"amount"`
	} `json:"funds"`
}

// callInfo validates the embedded caller and funds.
func (c callRequest) callInfo() (domain.CallInfo, error) {
	caller, err := domain.ParseIdentity(c.Caller)
	if err != nil {
		return domain.CallInfo{}, err
	}
	call := domain.CallInfo{Caller: caller}
	for _, f := range c.Funds {
		call.Funds = append(call.Funds, domain.Funds{Denom: f.Denom, Amount: f.Amount})
	}
	return call, nil
}

// decodeBody decodes the request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseListOpts extracts cursor pagination parameters from the query string.
// Defaults: limit=50 (max 500), start_after=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	var startAfter int64
	if v := q.Get("start_after"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			startAfter = n
		}
	}

	return domain.ListOpts{
		Limit:      limit,
		StartAfter: startAfter,
	}
}

// pathID extracts a named int64 path parameter using Go 1.22+ routing.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// optionalID parses an optional numeric query parameter; empty means nil.
func optionalID(v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
