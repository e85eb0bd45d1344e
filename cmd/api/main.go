package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coreledger/wallet-ledger/internal/cache"
	"github.com/coreledger/wallet-ledger/internal/config"
	"github.com/coreledger/wallet-ledger/internal/engine"
	"github.com/coreledger/wallet-ledger/internal/events"
	"github.com/coreledger/wallet-ledger/internal/metrics"
	"github.com/coreledger/wallet-ledger/internal/repository"
	"github.com/coreledger/wallet-ledger/internal/store"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs; production sets real env vars

	cfg := config.Load()
	logger := newLogger(cfg)

	db, err := store.Open(cfg, logger)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancelPrune := context.WithCancel(context.Background())
	defer cancelPrune()
	go store.RunPruneLoop(ctx, db, cfg.PruneInterval, logger)

	var redisClient cache.Client
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, idempotency lookups will hit postgres only", "error", err)
		} else {
			redisClient = rc
			defer rc.Close()
		}
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	wallets := repository.NewWalletRepository()
	ledger := repository.NewLedgerRepository(wallets)
	txns := repository.NewTransactionRepository()
	assetTypes := repository.NewAssetTypeRepository()
	idemRepo := repository.NewIdempotencyRepository()
	idemStore := cache.NewIdempotencyStore(idemRepo, db, redisClient, logger)

	runner := store.NewRunner(db)
	flowEngine := engine.New(db, runner, wallets, ledger, txns, publisher)

	app := &application{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		assetTypes:  assetTypes,
		wallets:     wallets,
		ledger:      ledger,
		txns:        txns,
		idempotency: idemStore,
		engine:      flowEngine,
		publisher:   publisher,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"port", cfg.Port, "env", cfg.Env,
			"read_timeout", server.ReadTimeout, "write_timeout", server.WriteTimeout)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received, draining connections", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}
