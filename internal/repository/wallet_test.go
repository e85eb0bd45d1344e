package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/money"
	"github.com/coreledger/wallet-ledger/internal/repository"
)

func TestLockPair_ReturnsBothWalletsKeyedByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	aliceID := uuid.New()
	treasuryID := uuid.New()
	assetID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "owner_id", "owner_kind", "asset_type_id", "balance", "is_active", "name", "created_at", "updated_at"}).
		AddRow(aliceID, "alice", "user", assetID, "500.000000", true, "", now, now).
		AddRow(treasuryID, "treasury", "system", assetID, "1000000.000000", true, "", now, now)

	mock.ExpectQuery(`SELECT id, owner_id, owner_kind, asset_type_id, balance, is_active, name, created_at, updated_at\s+FROM wallets\s+WHERE id IN \(\$1, \$2\)\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs(aliceID, treasuryID).
		WillReturnRows(rows)

	repo := repository.NewWalletRepository()
	locked, err := repo.LockPair(context.Background(), tx, aliceID, treasuryID)
	require.NoError(t, err)
	require.Len(t, locked, 2)

	assert.True(t, money.MustParse("500").Equal(locked[aliceID].Balance))
	assert.True(t, money.MustParse("1000000").Equal(locked[treasuryID].Balance))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockPair_NotFoundWhenFewerThanTwoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	aliceID := uuid.New()
	unknownID := uuid.New()
	assetID := uuid.New()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "owner_id", "owner_kind", "asset_type_id", "balance", "is_active", "name", "created_at", "updated_at"}).
		AddRow(aliceID, "alice", "user", assetID, "500.000000", true, "", time.Now(), time.Now())

	mock.ExpectQuery(`SELECT id, owner_id, owner_kind, asset_type_id, balance, is_active, name, created_at, updated_at\s+FROM wallets\s+WHERE id IN \(\$1, \$2\)\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs(aliceID, unknownID).
		WillReturnRows(rows)

	repo := repository.NewWalletRepository()
	_, err = repo.LockPair(context.Background(), tx, aliceID, unknownID)
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalance_ExecutesUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	walletID := uuid.New()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE wallets SET balance = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), walletID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := repository.NewWalletRepository()
	err = repo.UpdateBalance(context.Background(), tx, walletID, money.MustParse("600"))
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
