// Package repository implements C3 (wallet locker), C4 (ledger writer), C7
// (read views), and the persistence side of C5 (idempotency records) and
// Transaction bookkeeping.
package repository

import (
	"context"
	"database/sql"
)

// Queryer is the shared surface both *sql.DB and *sql.Tx implement. §9 flags
// the teacher's duck-typed "accept a query function or a client" helper as
// something a systems reimplementation should replace with two explicit
// entry points that share one inner routine; Queryer is that shared inner
// routine's parameter type. Read views (C7) call repository methods with a
// *sql.DB directly — they need no transaction. The locker (C3) and writer
// (C4) only ever run inside C2's transaction and take a *sql.Tx explicitly,
// so a caller cannot accidentally lock a row outside a transaction's scope.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ Queryer = (*sql.DB)(nil)
	_ Queryer = (*sql.Tx)(nil)
)
