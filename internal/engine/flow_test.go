package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/engine"
	"github.com/coreledger/wallet-ledger/internal/money"
	"github.com/coreledger/wallet-ledger/internal/repository"
	"github.com/coreledger/wallet-ledger/internal/store"
)

const walletCols = "id, owner_id, owner_kind, asset_type_id, balance, is_active, name, created_at, updated_at"
const txnCols = "id, kind, status, user_wallet_id, system_wallet_id, amount, reference_id, idempotency_key, description, metadata, created_at, updated_at"

// TestExecute_TopupSucceeds drives the full C6 template through sqlmock,
// the way CalebBoluwade-NFCPaymentsBackend's ledger_service_test.go drives
// a double-entry transfer: expectations are declared in the exact order
// the runner issues them.
func TestExecute_TopupSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	aliceID, treasuryID, assetID := uuid.New(), uuid.New(), uuid.New()
	txnID, debitEntryID, creditEntryID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()

	// Step 1: no existing transaction for this key.
	mock.ExpectQuery(`(?s)SELECT .* FROM transactions WHERE idempotency_key = \$1`).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows(splitCols(txnCols)))

	// Step 2 (C3): lock both wallets.
	walletRows := sqlmock.NewRows(splitCols(walletCols)).
		AddRow(aliceID, "alice", "user", assetID, "500.000000", true, "", now, now).
		AddRow(treasuryID, "treasury", "system", assetID, "1000000.000000", true, "", now, now)
	mock.ExpectQuery(`(?s)SELECT .* FROM wallets\s+WHERE id IN \(\$1, \$2\)\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs(aliceID, treasuryID).
		WillReturnRows(walletRows)

	// Step 5: insert the pending transaction row.
	mock.ExpectQuery(`(?s)INSERT INTO transactions .* RETURNING id, created_at, updated_at`).
		WithArgs("topup", "pending", aliceID, treasuryID, sqlmock.AnyArg(), sqlmock.AnyArg(), "k1", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(txnID, now, now))

	// Step 6: debit treasury, then credit alice.
	mock.ExpectExec(`UPDATE wallets SET balance = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), treasuryID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)INSERT INTO ledger_entries .* RETURNING id, created_at`).
		WithArgs(txnID, treasuryID, "debit", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(debitEntryID, now))

	mock.ExpectExec(`UPDATE wallets SET balance = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), aliceID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)INSERT INTO ledger_entries .* RETURNING id, created_at`).
		WithArgs(txnID, aliceID, "credit", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(creditEntryID, now))

	// Step 7: mark completed.
	mock.ExpectExec(`UPDATE transactions SET status = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs("completed", txnID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	wallets := repository.NewWalletRepository()
	ledger := repository.NewLedgerRepository(wallets)
	txns := repository.NewTransactionRepository()
	runner := store.NewRunner(db)
	eng := engine.New(db, runner, wallets, ledger, txns, nil)

	view, err := eng.Execute(context.Background(), engine.Topup, engine.Request{
		UserWalletID:   aliceID,
		SystemWalletID: treasuryID,
		Amount:         money.MustParse("100"),
		IdempotencyKey: "k1",
		ReferenceID:    "stripe-111",
	})
	require.NoError(t, err)
	assert.Equal(t, txnID, view.Transaction.ID)
	assert.Len(t, view.Entries, 2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_InsufficientFunds_RollsBackWithoutWriting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	aliceID, revenueID, assetID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()

	mock.ExpectQuery(`(?s)SELECT .* FROM wallets\s+WHERE id IN \(\$1, \$2\)\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs(aliceID, revenueID).
		WillReturnRows(sqlmock.NewRows(splitCols(walletCols)).
			AddRow(aliceID, "alice", "user", assetID, "600.000000", true, "", now, now).
			AddRow(revenueID, "revenue", "system", assetID, "0.000000", true, "", now, now))

	mock.ExpectRollback()

	wallets := repository.NewWalletRepository()
	ledger := repository.NewLedgerRepository(wallets)
	txns := repository.NewTransactionRepository()
	runner := store.NewRunner(db)
	eng := engine.New(db, runner, wallets, ledger, txns, nil)

	_, err = eng.Execute(context.Background(), engine.Spend, engine.Request{
		UserWalletID:   aliceID,
		SystemWalletID: revenueID,
		Amount:         money.MustParse("9999"),
	})
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInsufficientFunds, appErr.Kind)
	assert.Equal(t, map[string]string{"available": "600.000000", "required": "9999.000000"}, appErr.Details)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_RejectsNonPositiveAmountBeforeOpeningATransaction(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	wallets := repository.NewWalletRepository()
	ledger := repository.NewLedgerRepository(wallets)
	txns := repository.NewTransactionRepository()
	runner := store.NewRunner(db)
	eng := engine.New(db, runner, wallets, ledger, txns, nil)

	_, err = eng.Execute(context.Background(), engine.Topup, engine.Request{
		UserWalletID:   uuid.New(),
		SystemWalletID: uuid.New(),
		Amount:         money.Zero,
	})
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func splitCols(cols string) []string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
