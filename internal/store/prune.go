package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// RunPruneLoop deletes expired idempotency_keys rows on a ticker, off the
// request path. §3: "expired rows may be pruned." It stops when ctx is
// canceled.
func RunPruneLoop(ctx context.Context, db *sql.DB, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := PruneExpiredIdempotencyKeys(ctx, db)
			if err != nil {
				logger.Error("idempotency prune sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("pruned expired idempotency keys", "count", n)
			}
		}
	}
}

// PruneExpiredIdempotencyKeys deletes rows whose TTL has elapsed and
// returns how many were removed.
func PruneExpiredIdempotencyKeys(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
