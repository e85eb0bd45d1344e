// Package cache implements an optional Redis read-through layer in front of
// the Postgres-backed idempotency store (C5), modeled on the RedisClient
// interface in honeynil-MerchServiceTochka-main's infrastructure/redis
// package. The Postgres table stays the source of truth (§9); this is pure
// latency optimization and is safe to disable or lose.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coreledger/wallet-ledger/internal/model"
	"github.com/coreledger/wallet-ledger/internal/repository"
)

// Client is the minimal Redis surface this package depends on, so the rest
// of the service never imports the concrete go-redis type.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Close() error
}

// ErrCacheMiss is returned by Client.Get on a missing key.
var ErrCacheMiss = errors.New("cache: key not found")

// RedisClient adapts a *redis.Client to the Client interface.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient dials addr and pings it before returning.
func NewRedisClient(ctx context.Context, addr string) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisClient{rdb: rdb}, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisClient) Close() error { return c.rdb.Close() }

type cachedEnvelope struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyStore wraps a repository.IdempotencyRepository with a Redis
// read-through cache. Lookup checks Redis first, falling back to Postgres
// on miss or when Redis is unavailable; Store writes through to both.
type IdempotencyStore struct {
	repo   *repository.IdempotencyRepository
	db     *sql.DB
	client Client
	logger *slog.Logger
}

// NewIdempotencyStore constructs a cache-backed store. client may be nil,
// in which case every call falls straight through to Postgres — this is
// how the service runs with REDIS_ADDR unset.
func NewIdempotencyStore(repo *repository.IdempotencyRepository, db *sql.DB, client Client, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{repo: repo, db: db, client: client, logger: logger}
}

func cacheKey(key, path string) string {
	return "idempotency:" + path + ":" + key
}

// Lookup implements C5's lookup contract with a Redis fast path.
func (s *IdempotencyStore) Lookup(ctx context.Context, key, path string) (*model.IdempotencyRecord, error) {
	if s.client != nil {
		raw, err := s.client.Get(ctx, cacheKey(key, path))
		if err == nil {
			var env cachedEnvelope
			if jsonErr := json.Unmarshal([]byte(raw), &env); jsonErr == nil {
				return &model.IdempotencyRecord{
					Key:            key,
					RequestPath:    path,
					ResponseStatus: env.Status,
					ResponseBody:   env.Body,
				}, nil
			}
		} else if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("idempotency cache read failed, falling back to store", "error", err)
		}
	}
	return s.repo.Lookup(ctx, s.db, key, path)
}

// Store implements C5's store contract, writing through to Postgres (the
// source of truth) and best-effort to Redis.
func (s *IdempotencyStore) Store(ctx context.Context, key, path string, status int, body []byte, ttl time.Duration) error {
	if err := s.repo.Store(ctx, s.db, key, path, status, body, ttl); err != nil {
		return err
	}
	if s.client != nil {
		payload, err := json.Marshal(cachedEnvelope{Status: status, Body: body})
		if err == nil {
			if err := s.client.Set(ctx, cacheKey(key, path), string(payload), ttl); err != nil {
				s.logger.Warn("idempotency cache write failed", "error", err)
			}
		}
	}
	return nil
}
