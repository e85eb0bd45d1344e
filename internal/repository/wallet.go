package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/model"
	"github.com/coreledger/wallet-ledger/internal/money"
)

// WalletRepository implements C3 (locking) and the wallet half of C7 (read
// views).
type WalletRepository struct{}

// NewWalletRepository constructs a WalletRepository. It is stateless; every
// method takes its connection explicitly.
func NewWalletRepository() *WalletRepository {
	return &WalletRepository{}
}

// LockPair is C3: it locks the two wallet rows identified by idA and idB,
// in ascending id order, for the life of the enclosing transaction tx. The
// ORDER BY inside the locking SELECT is load-bearing (§4.2): combined with
// callers always passing an unordered pair, it guarantees any two
// concurrent transactions that touch an overlapping wallet set acquire
// rows in the same order, which is what makes deadlock on wallet rows
// impossible. It returns NotFound if fewer than two rows come back.
func (r *WalletRepository) LockPair(ctx context.Context, tx *sql.Tx, idA, idB uuid.UUID) (map[uuid.UUID]*model.Wallet, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, owner_id, owner_kind, asset_type_id, balance, is_active, name, created_at, updated_at
		FROM wallets
		WHERE id IN ($1, $2)
		ORDER BY id
		FOR UPDATE`, idA, idB)
	if err != nil {
		return nil, fmt.Errorf("lock wallet pair: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*model.Wallet, 2)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked wallet: %w", err)
		}
		out[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked wallets: %w", err)
	}
	if len(out) < 2 {
		return nil, apperr.NotFound("wallet")
	}
	return out, nil
}

// UpdateBalance writes newBalance to the wallet row. It is called only by
// the ledger writer (C4), which computes newBalance from the snapshot
// locked by LockPair's transaction and updates its in-memory copy once
// this write succeeds.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, walletID uuid.UUID, newBalance money.Amount) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	return nil
}

// GetByID is a C7 read view: a point lookup with no locking.
func (r *WalletRepository) GetByID(ctx context.Context, q Queryer, id uuid.UUID) (*model.Wallet, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, owner_id, owner_kind, asset_type_id, balance, is_active, name, created_at, updated_at
		FROM wallets WHERE id = $1`, id)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("wallet")
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// List is a C7 read view: paginated wallets, optionally filtered by owner
// kind.
func (r *WalletRepository) List(ctx context.Context, q Queryer, ownerKind string, page, limit int) ([]*model.Wallet, int, error) {
	offset := (page - 1) * limit

	var countRow *sql.Row
	var rows *sql.Rows
	var err error

	if ownerKind != "" {
		countRow = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets WHERE owner_kind = $1`, ownerKind)
		rows, err = q.QueryContext(ctx, `
			SELECT id, owner_id, owner_kind, asset_type_id, balance, is_active, name, created_at, updated_at
			FROM wallets WHERE owner_kind = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			ownerKind, limit, offset)
	} else {
		countRow = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets`)
		rows, err = q.QueryContext(ctx, `
			SELECT id, owner_id, owner_kind, asset_type_id, balance, is_active, name, created_at, updated_at
			FROM wallets ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var total int
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallets: %w", err)
	}

	var out []*model.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanWallet(s scannable) (*model.Wallet, error) {
	var w model.Wallet
	if err := s.Scan(
		&w.ID, &w.OwnerID, &w.OwnerKind, &w.AssetTypeID, &w.Balance,
		&w.IsActive, &w.Name, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}
