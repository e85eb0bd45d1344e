// Package config loads the service's environment-driven configuration the
// way the teacher's internal/helpers env helpers do, extended with the
// knobs §6 and §5 name (pool sizing, idempotency TTL, rate limiting).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-boundary knob. Field names are chosen for
// readability in Go; the environment variable names are the ecosystem-
// conventional ones §6 says the core must not be coupled to any one scheme
// of — hence plain os.Getenv reads here, not a config-file library.
type Config struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	PoolMinConns        int
	PoolMaxConns        int
	PoolAcquireTimeout  time.Duration
	PoolIdleTimeout     time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int

	IdempotencyTTL time.Duration

	LogLevel string

	RedisAddr string

	KafkaBrokers []string
	KafkaTopic   string

	PruneInterval time.Duration
}

// Load reads Config from the environment, defaulting anything unset.
func Load() *Config {
	cfg := &Config{}

	cfg.Port = getEnvAsStr("PORT", "8080")
	cfg.Env = getEnvAsStr("ENV", "development")
	cfg.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.DB.Host = getEnvAsStr("DB_HOST", "postgres")
	cfg.DB.Port = getEnvAsStr("DB_PORT", "5432")
	cfg.DB.User = getEnvAsStr("DB_USER", "postgres")
	cfg.DB.Password = getEnvAsStr("DB_PASSWORD", "postgres")
	cfg.DB.Name = getEnvAsStr("DB_NAME", "ledger")

	cfg.PoolMinConns = getEnvAsInt("DB_POOL_MIN_CONNS", 2)
	cfg.PoolMaxConns = getEnvAsInt("DB_POOL_MAX_CONNS", 25)
	cfg.PoolAcquireTimeout = getEnvAsDuration("DB_POOL_ACQUIRE_TIMEOUT", 5*time.Second)
	cfg.PoolIdleTimeout = getEnvAsDuration("DB_POOL_IDLE_TIMEOUT", 30*time.Second)

	cfg.RateLimitWindow = getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute)
	cfg.RateLimitMax = getEnvAsInt("RATE_LIMIT_MAX", 120)

	cfg.IdempotencyTTL = getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour)

	cfg.LogLevel = getEnvAsStr("LOG_LEVEL", "info")

	cfg.RedisAddr = getEnvAsStr("REDIS_ADDR", "")

	if brokers := getEnvAsStr("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitCSV(brokers)
	}
	cfg.KafkaTopic = getEnvAsStr("KAFKA_TOPIC", "ledger.transactions")

	cfg.PruneInterval = getEnvAsDuration("IDEMPOTENCY_PRUNE_INTERVAL", time.Hour)

	return cfg
}

func getEnvAsStr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
