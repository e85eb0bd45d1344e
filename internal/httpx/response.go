// Package httpx holds the transport-layer helpers shared by every handler:
// the response envelope, pagination parsing, and the idempotency pipeline
// stage. It is the generalized replacement for the teacher's
// internal/helpers.WriteJSON/WriteError pair, extended for the envelope
// shape §6 specifies and the request-boundary idempotency contract §4.4
// describes.
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/model"
)

// envelope is the shape every response body takes, success or failure.
type envelope struct {
	Success    bool             `json:"success"`
	Data       any              `json:"data,omitempty"`
	Pagination *model.Pagination `json:"pagination,omitempty"`
	Error      *errorBody       `json:"error,omitempty"`
	RequestID  string           `json:"requestId,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a successful envelope with the given status and data.
func WriteJSON(w http.ResponseWriter, requestID string, status int, data any) {
	writeEnvelope(w, status, envelope{Success: true, Data: data, RequestID: requestID})
}

// WritePaginated writes a successful envelope carrying a pagination block.
func WritePaginated(w http.ResponseWriter, requestID string, data any, p model.Pagination) {
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p, RequestID: requestID})
}

// WriteError renders err as a failure envelope. An *apperr.Error carries
// its own status and code; anything else is folded into an internal fault
// per §7 so no incidental detail ever reaches a client. devMode controls
// whether an internal fault's underlying cause is surfaced: per §7, an
// internal fault returns "a generic message in production and the message
// in development" — devMode should be cfg.Env != "production".
func WriteError(w http.ResponseWriter, requestID string, err error, devMode bool) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}
	message := appErr.Message
	if devMode && appErr.Kind == apperr.KindInternal {
		message = appErr.Error()
	}
	writeEnvelope(w, appErr.Status(), envelope{
		Success: false,
		Error: &errorBody{
			Code:    appErr.Code(),
			Message: message,
			Details: appErr.Details,
		},
		RequestID: requestID,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// Pagination reads page/limit query params, defaulting to page 1 and limit
// 20. A page below 1, or a limit outside 1..100, is not clamped: the
// default is used instead.
func Pagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 20
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	return page, limit
}

// ParseUUIDParam parses a path parameter as a UUID, returning a
// *apperr.Error ready to hand to WriteError on failure.
func ParseUUIDParam(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, apperr.Validation("invalid id", map[string]string{"id": raw})
	}
	return id, nil
}
