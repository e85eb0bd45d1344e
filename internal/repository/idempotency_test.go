package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/coreledger/wallet-ledger/internal/repository"
)

func TestIdempotencyLookup_ReturnsErrorWhenQueryFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, key, request_path, response_status, response_body, created_at, expires_at\s+FROM idempotency_keys\s+WHERE key = \$1 AND request_path = \$2 AND expires_at > NOW\(\)`).
		WithArgs("k1", "/api/v1/transactions/topup").
		WillReturnError(sqlmock.ErrCancelled)

	repo := repository.NewIdempotencyRepository()
	_, err = repo.Lookup(context.Background(), db, "k1", "/api/v1/transactions/topup")
	require.Error(t, err)
}

func TestIdempotencyStore_DoNothingOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO idempotency_keys .* ON CONFLICT \(key, request_path\) DO NOTHING`).
		WithArgs("k1", "/api/v1/transactions/topup", 201, []byte(`{"ok":true}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 0))

	repo := repository.NewIdempotencyRepository()
	err = repo.Store(context.Background(), db, "k1", "/api/v1/transactions/topup", 201, []byte(`{"ok":true}`), 24*time.Hour)
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
