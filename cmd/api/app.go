package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/cache"
	"github.com/coreledger/wallet-ledger/internal/config"
	"github.com/coreledger/wallet-ledger/internal/engine"
	"github.com/coreledger/wallet-ledger/internal/events"
	"github.com/coreledger/wallet-ledger/internal/httpx"
	"github.com/coreledger/wallet-ledger/internal/repository"
)

// application bundles every dependency a handler needs, the way the
// teacher's application struct bundles config/logger/db — generalized here
// to also carry the repositories, the flow engine, and the idempotency
// store the expanded handlers depend on.
type application struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	assetTypes  *repository.AssetTypeRepository
	wallets     *repository.WalletRepository
	ledger      *repository.LedgerRepository
	txns        *repository.TransactionRepository
	idempotency *cache.IdempotencyStore

	engine    *engine.Engine
	publisher *events.Publisher
}

// writeError renders err through httpx.WriteError, deciding devMode from
// cfg.Env per §7: "a generic message in production and the message in
// development."
// Non-operational faults are logged here with the request id.
func (app *application) writeError(w http.ResponseWriter, requestID string, err error) {
	if ae, ok := apperr.As(err); !ok || ae.Kind == apperr.KindInternal {
		app.logger.Error("internal error", "request_id", requestID, "error", err)
	}
	httpx.WriteError(w, requestID, err, app.cfg.Env != "production")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
