package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/model"
)

// ErrIdempotencyKeyConflict signals the unique-violation step 5 of §4.5
// anticipates: another request with the same idempotency key committed its
// Transaction row first.
var ErrIdempotencyKeyConflict = errors.New("idempotency key already committed")

// TransactionRepository persists Transaction rows: the pending insert, the
// completion update, the duplicate-key lookup, and the C7 read views.
type TransactionRepository struct{}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

// Insert writes a new pending Transaction row. If idempotencyKey collides
// with an already-committed row, it returns ErrIdempotencyKeyConflict so
// the flow engine can re-read the winner instead of failing the request.
func (r *TransactionRepository) Insert(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (kind, status, user_wallet_id, system_wallet_id, amount, reference_id, idempotency_key, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		t.Kind, t.Status, t.UserWalletID, t.SystemWalletID, t.Amount,
		t.ReferenceID, t.IdempotencyKey, t.Description, t.Metadata)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "transactions_idempotency_key_key" {
				return ErrIdempotencyKeyConflict
			}
			return apperr.Conflict("duplicate transaction")
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// MarkCompleted promotes a Transaction to completed, the last step of the
// C6 template before C2 commits.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`,
		model.StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("mark transaction completed: %w", err)
	}
	return nil
}

// FindByIdempotencyKey looks up a Transaction by its idempotency key,
// regardless of status. It is used both for the early replay lookup in C6
// step 1 and for re-reading the winner after an ErrIdempotencyKeyConflict.
func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, q Queryer, key string) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, kind, status, user_wallet_id, system_wallet_id, amount, reference_id, idempotency_key, description, metadata, created_at, updated_at
		FROM transactions WHERE idempotency_key = $1`, key)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by idempotency key: %w", err)
	}
	return t, nil
}

// GetByID is a C7 read view.
func (r *TransactionRepository) GetByID(ctx context.Context, q Queryer, id uuid.UUID) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, kind, status, user_wallet_id, system_wallet_id, amount, reference_id, idempotency_key, description, metadata, created_at, updated_at
		FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("transaction")
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListByWallet is a C7 read view: paginated transaction history touching
// the given wallet, either side.
func (r *TransactionRepository) ListByWallet(ctx context.Context, q Queryer, walletID uuid.UUID, page, limit int) ([]*model.Transaction, int, error) {
	offset := (page - 1) * limit

	var total int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_wallet_id = $1 OR system_wallet_id = $1`,
		walletID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, status, user_wallet_id, system_wallet_id, amount, reference_id, idempotency_key, description, metadata, created_at, updated_at
		FROM transactions
		WHERE user_wallet_id = $1 OR system_wallet_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		walletID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions by wallet: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func scanTransaction(s scannable) (*model.Transaction, error) {
	var t model.Transaction
	if err := s.Scan(
		&t.ID, &t.Kind, &t.Status, &t.UserWalletID, &t.SystemWalletID, &t.Amount,
		&t.ReferenceID, &t.IdempotencyKey, &t.Description, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
