package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreledger/wallet-ledger/internal/model"
	"github.com/coreledger/wallet-ledger/internal/money"
)

// LedgerRepository implements C4: applying a signed delta to a locked
// wallet row and emitting the matching ledger entry.
type LedgerRepository struct {
	wallets *WalletRepository
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(wallets *WalletRepository) *LedgerRepository {
	return &LedgerRepository{wallets: wallets}
}

// Apply takes a locked wallet (already read under LockPair's FOR UPDATE),
// computes before/after balances for the given side, writes the UPDATE,
// and inserts the LedgerEntry. before is read from the in-memory locked
// snapshot, never re-read from the store — the exclusive lock makes them
// equal, per §4.3. The UPDATE's non-negative CHECK constraint is the last-
// line defense if the engine's own balance check were ever bypassed.
func (r *LedgerRepository) Apply(ctx context.Context, tx *sql.Tx, wallet *model.Wallet, side model.LedgerSide, amount money.Amount, transactionID uuid.UUID) (*model.LedgerEntry, error) {
	before := wallet.Balance

	var after money.Amount
	switch side {
	case model.SideDebit:
		after = before.Sub(amount)
	case model.SideCredit:
		after = before.Add(amount)
	default:
		return nil, fmt.Errorf("apply ledger entry: invalid side %q", side)
	}

	if err := r.wallets.UpdateBalance(ctx, tx, wallet.ID, after); err != nil {
		return nil, err
	}
	wallet.Balance = after

	entry := &model.LedgerEntry{
		TransactionID: transactionID,
		WalletID:      wallet.ID,
		Side:          side,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (transaction_id, wallet_id, side, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		entry.TransactionID, entry.WalletID, entry.Side, entry.Amount, entry.BalanceBefore, entry.BalanceAfter)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	return entry, nil
}

// ListByTransaction is a C7 read view returning both postings for a
// transaction in created_at order.
func (r *LedgerRepository) ListByTransaction(ctx context.Context, q Queryer, transactionID uuid.UUID) ([]model.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, wallet_id, side, amount, balance_before, balance_after, created_at
		FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.WalletID, &e.Side, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListByWallet is a C7 read view: paginated ledger history for one wallet.
func (r *LedgerRepository) ListByWallet(ctx context.Context, q Queryer, walletID uuid.UUID, page, limit int) ([]model.LedgerEntry, int, error) {
	offset := (page - 1) * limit

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, wallet_id, side, amount, balance_before, balance_after, created_at
		FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		walletID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries by wallet: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.WalletID, &e.Side, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
