package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/engine"
	"github.com/coreledger/wallet-ledger/internal/httpx"
	"github.com/coreledger/wallet-ledger/internal/model"
	"github.com/coreledger/wallet-ledger/internal/money"
)

func (app *application) healthCheck(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, requestIDFromContext(r.Context()), http.StatusOK, map[string]string{
		"status": "ok",
		"env":    app.cfg.Env,
	})
}

// listAssetTypes handles GET /api/v1/asset-types.
func (app *application) listAssetTypes(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	types, err := app.assetTypes.List(r.Context(), app.db)
	if err != nil {
		app.logger.Error("list asset types failed", "error", err)
		app.writeError(w, reqID, err)
		return
	}
	httpx.WriteJSON(w, reqID, http.StatusOK, types)
}

// listWallets handles GET /api/v1/wallets.
func (app *application) listWallets(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	page, limit := httpx.Pagination(r)
	ownerKind := r.URL.Query().Get("ownerKind")

	wallets, total, err := app.wallets.List(r.Context(), app.db, ownerKind, page, limit)
	if err != nil {
		app.logger.Error("list wallets failed", "error", err)
		app.writeError(w, reqID, err)
		return
	}
	httpx.WritePaginated(w, reqID, wallets, model.Pagination{Page: page, Limit: limit, Total: total})
}

// getWallet handles GET /api/v1/wallets/{id}.
func (app *application) getWallet(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	id, err := httpx.ParseUUIDParam(chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	wallet, err := app.wallets.GetByID(r.Context(), app.db, id)
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	httpx.WriteJSON(w, reqID, http.StatusOK, wallet)
}

// getWalletBalance handles GET /api/v1/wallets/{id}/balance.
func (app *application) getWalletBalance(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	id, err := httpx.ParseUUIDParam(chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	wallet, err := app.wallets.GetByID(r.Context(), app.db, id)
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	httpx.WriteJSON(w, reqID, http.StatusOK, map[string]any{
		"walletId": wallet.ID,
		"balance":  wallet.Balance,
	})
}

// listWalletTransactions handles GET /api/v1/wallets/{id}/transactions.
func (app *application) listWalletTransactions(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	id, err := httpx.ParseUUIDParam(chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	page, limit := httpx.Pagination(r)
	txns, total, err := app.txns.ListByWallet(r.Context(), app.db, id, page, limit)
	if err != nil {
		app.logger.Error("list wallet transactions failed", "wallet_id", id, "error", err)
		app.writeError(w, reqID, err)
		return
	}
	httpx.WritePaginated(w, reqID, txns, model.Pagination{Page: page, Limit: limit, Total: total})
}

// getTransaction handles GET /api/v1/transactions/{id}.
func (app *application) getTransaction(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	id, err := httpx.ParseUUIDParam(chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	txn, err := app.txns.GetByID(r.Context(), app.db, id)
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	entries, err := app.ledger.ListByTransaction(r.Context(), app.db, txn.ID)
	if err != nil {
		app.logger.Error("list ledger entries failed", "transaction_id", txn.ID, "error", err)
		app.writeError(w, reqID, err)
		return
	}
	httpx.WriteJSON(w, reqID, http.StatusOK, model.TransactionView{Transaction: *txn, Entries: entries})
}

// createTopup handles POST /api/v1/transactions/topup.
func (app *application) createTopup(w http.ResponseWriter, r *http.Request) {
	app.runFlow(w, r, engine.Topup, "", "")
}

// createBonus handles POST /api/v1/transactions/bonus.
func (app *application) createBonus(w http.ResponseWriter, r *http.Request) {
	app.runFlow(w, r, engine.Bonus, "reason", "Reason")
}

// createSpend handles POST /api/v1/transactions/spend.
func (app *application) createSpend(w http.ResponseWriter, r *http.Request) {
	app.runFlow(w, r, engine.Spend, "serviceId", "ServiceID")
}

// runFlow decodes the shared mutation body, folds the flow-specific
// correlator (reason for bonus, serviceId for spend) into both
// ReferenceID and Metadata per SPEC_FULL.md's resolution of §9's open
// question, and hands the request to C6.
func (app *application) runFlow(w http.ResponseWriter, r *http.Request, policy engine.Policy, metaKey, extraField string) {
	reqID := requestIDFromContext(r.Context())

	var body model.MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.writeError(w, reqID, apperr.Validation("invalid request body", nil))
		return
	}
	defer r.Body.Close()

	amount, err := money.Parse(body.Amount)
	if err != nil {
		app.writeError(w, reqID, apperr.Validation("amount must be a valid decimal string", map[string]string{"amount": body.Amount}))
		return
	}

	reference := body.ReferenceID
	extraValue := ""
	switch extraField {
	case "Reason":
		extraValue = body.Reason
	case "ServiceID":
		extraValue = body.ServiceID
	}
	if reference == "" {
		reference = extraValue
	}

	metadata := body.Metadata
	if metaKey != "" && extraValue != "" {
		if metadata == nil {
			metadata = model.Metadata{}
		}
		metadata[metaKey] = extraValue
	}

	view, err := app.engine.Execute(r.Context(), policy, engine.Request{
		UserWalletID:   body.WalletID,
		SystemWalletID: body.SystemWalletID,
		Amount:         amount,
		IdempotencyKey: r.Header.Get(httpx.IdempotencyKeyHeader),
		ReferenceID:    reference,
		Description:    body.Description,
		Metadata:       metadata,
	})
	if err != nil {
		app.writeError(w, reqID, err)
		return
	}
	httpx.WriteJSON(w, reqID, http.StatusCreated, view)
}
