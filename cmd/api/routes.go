package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/coreledger/wallet-ledger/internal/httpx"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(app.logRequest)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", app.healthCheck)

	idempotent := httpx.Idempotency(app.idempotency, app.cfg.IdempotencyTTL, app.logger)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/asset-types", app.listAssetTypes)

		v1.Get("/wallets", app.listWallets)
		v1.Get("/wallets/{id}", app.getWallet)
		v1.Get("/wallets/{id}/balance", app.getWalletBalance)
		v1.Get("/wallets/{id}/transactions", app.listWalletTransactions)

		v1.Get("/transactions/{id}", app.getTransaction)
		v1.With(idempotent).Post("/transactions/topup", app.createTopup)
		v1.With(idempotent).Post("/transactions/bonus", app.createBonus)
		v1.With(idempotent).Post("/transactions/spend", app.createSpend)
	})

	return r
}
