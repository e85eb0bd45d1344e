package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/coreledger/wallet-ledger/internal/model"
)

// IdempotencyRepository is the Postgres-backed half of C5: it maps
// (key, path) to a cached response envelope.
type IdempotencyRepository struct{}

// NewIdempotencyRepository constructs an IdempotencyRepository.
func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{}
}

// Lookup returns the cached record for (key, path) if it exists and has
// not expired, or nil if there is no usable cache entry.
func (r *IdempotencyRepository) Lookup(ctx context.Context, q Queryer, key, path string) (*model.IdempotencyRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, key, request_path, response_status, response_body, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1 AND request_path = $2 AND expires_at > NOW()`, key, path)

	var rec model.IdempotencyRecord
	err := row.Scan(&rec.ID, &rec.Key, &rec.RequestPath, &rec.ResponseStatus, &rec.ResponseBody, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency record: %w", err)
	}
	return &rec, nil
}

// Store best-effort inserts a cached response. On a (key, path) conflict it
// leaves the existing row untouched, per §4.4 — the first writer wins.
func (r *IdempotencyRepository) Store(ctx context.Context, q Queryer, key, path string, status int, body []byte, ttl time.Duration) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, request_path, response_status, response_body, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key, request_path) DO NOTHING`,
		key, path, status, body, time.Now().Add(ttl))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}
