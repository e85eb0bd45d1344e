package cache_test

import (
	"context"
	"log/slog"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreledger/wallet-ledger/internal/cache"
	"github.com/coreledger/wallet-ledger/internal/repository"
)

type fakeClient struct {
	values map[string]string
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeClient) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdempotencyStore_LookupHitsRedisBeforePostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO idempotency_keys .* ON CONFLICT \(key, request_path\) DO NOTHING`).
		WithArgs("k1", "/api/v1/transactions/topup", 201, []byte(`{"a":1}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	client := &fakeClient{values: map[string]string{}}
	repo := repository.NewIdempotencyRepository()
	store := cache.NewIdempotencyStore(repo, db, client, discardLogger())

	require.NoError(t, store.Store(context.Background(), "k1", "/api/v1/transactions/topup", 201, []byte(`{"a":1}`), time.Hour))

	// Lookup must be served from Redis alone; no further Postgres query is
	// expected here, so ExpectationsWereMet below would fail if it fell through.
	rec, err := store.Lookup(context.Background(), "k1", "/api/v1/transactions/topup")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 201, rec.ResponseStatus)
	assert.Equal(t, []byte(`{"a":1}`), rec.ResponseBody)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_NilClientFallsThroughToPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO idempotency_keys .* ON CONFLICT \(key, request_path\) DO NOTHING`).
		WithArgs("k2", "/api/v1/transactions/spend", 201, []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := repository.NewIdempotencyRepository()
	store := cache.NewIdempotencyStore(repo, db, nil, discardLogger())

	err = store.Store(context.Background(), "k2", "/api/v1/transactions/spend", 201, []byte(`{}`), time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
