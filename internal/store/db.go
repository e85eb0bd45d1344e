// Package store implements C1 (schema) and C2 (transaction runner): opening
// the pooled connection to Postgres, applying the five-table schema, and
// running a unit of work inside BEGIN/COMMIT/ROLLBACK.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/coreledger/wallet-ledger/internal/config"
)

// Open dials Postgres, retrying the way the teacher's OpenDB does, applies
// pool sizing from cfg, and runs the schema migration before returning.
func Open(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
	)

	var db *sql.DB
	var err error
	const attempts = 5
	for i := 0; i < attempts; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		logger.Info("waiting for database", "attempt", i+1, "of", attempts)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not reach database after %d attempts: %w", attempts, err)
	}

	db.SetMaxOpenConns(cfg.PoolMaxConns)
	db.SetMaxIdleConns(cfg.PoolMinConns)
	db.SetConnMaxIdleTime(cfg.PoolIdleTimeout)
	logger.Info("database connection established",
		"max_conns", cfg.PoolMaxConns, "min_idle", cfg.PoolMinConns)

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the five relations, their constraints, and
// schema_migrations bookkeeping, idempotently. A real deployment hands this
// job to an external migration runner (§1); this in-process path exists so
// the service is runnable standalone, the way the teacher's RunMigrations
// does for its two-table schema.
func Migrate(db *sql.DB, logger *slog.Logger) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			filename    TEXT PRIMARY KEY,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
		`CREATE TABLE IF NOT EXISTS asset_types (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name        TEXT NOT NULL UNIQUE,
			symbol      TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id       TEXT NOT NULL,
			owner_kind     TEXT NOT NULL CHECK (owner_kind IN ('user','system')),
			asset_type_id  UUID NOT NULL REFERENCES asset_types(id),
			balance        NUMERIC(20,6) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			is_active      BOOLEAN NOT NULL DEFAULT TRUE,
			name           TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (owner_id, asset_type_id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			kind              TEXT NOT NULL CHECK (kind IN ('topup','bonus','spend')),
			status            TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
			user_wallet_id    UUID NOT NULL REFERENCES wallets(id),
			system_wallet_id  UUID NOT NULL REFERENCES wallets(id),
			amount            NUMERIC(20,6) NOT NULL CHECK (amount > 0),
			reference_id      TEXT,
			idempotency_key   TEXT UNIQUE,
			description       TEXT NOT NULL DEFAULT '',
			metadata          JSONB NOT NULL DEFAULT '{}',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (user_wallet_id <> system_wallet_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_wallet ON transactions(user_wallet_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_system_wallet ON transactions(system_wallet_id)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			transaction_id  UUID NOT NULL REFERENCES transactions(id),
			wallet_id       UUID NOT NULL REFERENCES wallets(id),
			side            TEXT NOT NULL CHECK (side IN ('debit','credit')),
			amount          NUMERIC(20,6) NOT NULL CHECK (amount > 0),
			balance_before  NUMERIC(20,6) NOT NULL,
			balance_after   NUMERIC(20,6) NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_wallet ON ledger_entries(wallet_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries(transaction_id)`,
		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			key              TEXT NOT NULL,
			request_path     TEXT NOT NULL,
			response_status  INT NOT NULL,
			response_body    JSONB NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at       TIMESTAMPTZ NOT NULL,
			UNIQUE (key, request_path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_idempotency_expires ON idempotency_keys(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	logger.Info("migrations completed")
	return nil
}

// Runner is C2: it acquires a connection, opens a transaction, guarantees
// commit-or-rollback, and propagates fn's return value. No retry logic —
// deadlock or serialization faults surface as their natural error.
type Runner struct {
	db *sql.DB
}

// NewRunner wraps a *sql.DB.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// Run executes fn inside a single transaction. fn's error, if non-nil,
// triggers a rollback and is returned unchanged; otherwise the transaction
// is committed.
func (r *Runner) Run(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a documented no-op

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
