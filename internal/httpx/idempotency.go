package httpx

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/model"
)

// IdempotencyStore is the interface the middleware depends on — satisfied
// by *cache.IdempotencyStore. Modeling it as an interface here, rather than
// importing the cache package's concrete type, keeps this middleware
// usable in tests against a fake.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key, path string) (*model.IdempotencyRecord, error)
	Store(ctx context.Context, key, path string, status int, body []byte, ttl time.Duration) error
}

// ReplayedHeader is set to "true" on a response served from the
// idempotency store instead of the handler, per §6.
const ReplayedHeader = "X-Idempotency-Replayed"

// IdempotencyKeyHeader is the header clients set to make a mutation
// request idempotent.
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency wraps a mutation handler with §4.4's request-boundary
// contract: on a cache hit for (Idempotency-Key, path), the stored
// response is replayed verbatim and the handler never runs; on a miss,
// the handler's response is captured as it is written to the client and
// stored once the handler returns. §6 requires the header on every mutation endpoint; a request
// missing it never reaches the handler.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" || len(key) > 255 {
				// Always a VALIDATION_ERROR, never INTERNAL_ERROR, so devMode
				// has no effect on this response; pass false rather than
				// threading an env flag through the middleware constructor.
				WriteError(w, w.Header().Get("X-Request-ID"), apperr.Validation(
					"Idempotency-Key header is required and must be at most 255 characters", nil), false)
				return
			}

			path := r.URL.Path
			if rec, err := store.Lookup(r.Context(), key, path); err != nil {
				logger.Warn("idempotency lookup failed, proceeding without cache", "error", err)
			} else if rec != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(ReplayedHeader, "true")
				w.WriteHeader(rec.ResponseStatus)
				_, _ = w.Write(rec.ResponseBody)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)

			// §4.4: cache once the response is known and status < 500 — a
			// 4xx (e.g. INSUFFICIENT_FUNDS, CONFLICT) is a fixed answer for
			// this (key, path) and must replay identically per §8; only a
			// 5xx is left uncached so a transient failure can be retried
			// fresh.
			if rec.status < http.StatusInternalServerError {
				if err := store.Store(r.Context(), key, path, rec.status, rec.body.Bytes(), ttl); err != nil {
					logger.Warn("idempotency store failed", "error", err)
				}
			}
		})
	}
}

// responseRecorder captures the status and body a handler wrote so they
// can be persisted after the fact, while still passing both through to the
// real ResponseWriter untouched.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
