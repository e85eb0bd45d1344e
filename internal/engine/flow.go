// Package engine implements C6, the flow engine: the shared template that
// orchestrates topup, bonus, and spend, each parameterized by a Policy that
// says which of the two wallets is debited and which is credited.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/events"
	"github.com/coreledger/wallet-ledger/internal/metrics"
	"github.com/coreledger/wallet-ledger/internal/model"
	"github.com/coreledger/wallet-ledger/internal/money"
	"github.com/coreledger/wallet-ledger/internal/repository"
	"github.com/coreledger/wallet-ledger/internal/store"
)

// Policy fixes which wallet a flow debits and which it credits, per the
// table in §4.5. Both topup and bonus debit the system wallet and credit
// the user wallet; spend debits the user wallet and credits the system
// wallet.
type Policy struct {
	Kind                 model.TransactionKind
	SourceIsSystemWallet bool
}

var (
	Topup = Policy{Kind: model.KindTopup, SourceIsSystemWallet: true}
	Bonus = Policy{Kind: model.KindBonus, SourceIsSystemWallet: true}
	Spend = Policy{Kind: model.KindSpend, SourceIsSystemWallet: false}
)

// Request is the input to a flow, already validated for shape at the
// transport boundary (§1: request payload validation is an external
// collaborator). ReferenceID is the consolidated external correlator per
// SPEC_FULL.md's decision on §9's first open question: callers fold
// referenceId/serviceId/reason into ReferenceID and also carry the
// flow-specific value in Metadata under its original key.
type Request struct {
	UserWalletID   uuid.UUID
	SystemWalletID uuid.UUID
	Amount         money.Amount
	IdempotencyKey string
	ReferenceID    string
	Description    string
	Metadata       model.Metadata
}

// errIdempotencyRace is an internal sentinel: it signals Insert hit
// repository.ErrIdempotencyKeyConflict, so the caller must abort the
// transaction (already happening via the returned error) and re-read the
// winner outside it.
var errIdempotencyRace = errors.New("engine: idempotency key committed by a concurrent request")

// Engine executes the three flows against a Postgres-backed store.
type Engine struct {
	db        *sql.DB
	runner    *store.Runner
	wallets   *repository.WalletRepository
	ledger    *repository.LedgerRepository
	txns      *repository.TransactionRepository
	publisher *events.Publisher
}

// New constructs an Engine.
func New(db *sql.DB, runner *store.Runner, wallets *repository.WalletRepository, ledger *repository.LedgerRepository, txns *repository.TransactionRepository, publisher *events.Publisher) *Engine {
	return &Engine{db: db, runner: runner, wallets: wallets, ledger: ledger, txns: txns, publisher: publisher}
}

// Execute runs the C6 template for the given policy and request, returning
// the completed transaction and its two postings.
func (e *Engine) Execute(ctx context.Context, policy Policy, req Request) (*model.TransactionView, error) {
	start := time.Now()
	view, err := e.execute(ctx, policy, req)
	metrics.FlowDuration.WithLabelValues(string(policy.Kind)).Observe(time.Since(start).Seconds())
	metrics.TransactionsTotal.WithLabelValues(string(policy.Kind), resultLabel(err)).Inc()
	if err == nil && e.publisher != nil {
		e.publisher.PublishCompleted(ctx, *view)
	}
	return view, err
}

func (e *Engine) execute(ctx context.Context, policy Policy, req Request) (*model.TransactionView, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be positive", nil)
	}

	var view *model.TransactionView

	err := e.runner.Run(ctx, func(tx *sql.Tx) error {
		// C6 step 1: re-query by idempotency key inside the transaction —
		// the second defense described in §4.4, independent of whatever
		// happened at the C5 response-cache boundary.
		if req.IdempotencyKey != "" {
			existing, err := e.txns.FindByIdempotencyKey(ctx, tx, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				entries, err := e.ledger.ListByTransaction(ctx, tx, existing.ID)
				if err != nil {
					return err
				}
				view = &model.TransactionView{Transaction: *existing, Entries: entries}
				return nil
			}
		}

		// C3: lock both wallet rows in canonical (ascending id) order.
		locked, err := e.wallets.LockPair(ctx, tx, req.UserWalletID, req.SystemWalletID)
		if err != nil {
			return err
		}
		user, target := locked[req.UserWalletID], locked[req.SystemWalletID]
		if user == nil || target == nil {
			return apperr.NotFound("wallet")
		}

		source, dest := user, target
		if policy.SourceIsSystemWallet {
			source, dest = target, user
		}

		if err := validatePreconditions(source, dest, req.Amount); err != nil {
			return err
		}

		txn := &model.Transaction{
			Kind:           policy.Kind,
			Status:         model.StatusPending,
			UserWalletID:   req.UserWalletID,
			SystemWalletID: req.SystemWalletID,
			Amount:         req.Amount,
			Description:    req.Description,
			Metadata:       req.Metadata,
		}
		if req.ReferenceID != "" {
			ref := req.ReferenceID
			txn.ReferenceID = &ref
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			txn.IdempotencyKey = &key
		}

		if err := e.txns.Insert(ctx, tx, txn); err != nil {
			if errors.Is(err, repository.ErrIdempotencyKeyConflict) {
				return errIdempotencyRace
			}
			return err
		}

		debit, err := e.ledger.Apply(ctx, tx, source, model.SideDebit, req.Amount, txn.ID)
		if err != nil {
			return err
		}
		credit, err := e.ledger.Apply(ctx, tx, dest, model.SideCredit, req.Amount, txn.ID)
		if err != nil {
			return err
		}

		if err := e.txns.MarkCompleted(ctx, tx, txn.ID); err != nil {
			return err
		}
		txn.Status = model.StatusCompleted

		view = &model.TransactionView{Transaction: *txn, Entries: []model.LedgerEntry{*debit, *credit}}
		return nil
	})

	if errors.Is(err, errIdempotencyRace) {
		// The insert lost a race against a concurrent request with the
		// same key; our transaction rolled back. Re-read the winner
		// outside any transaction and return it as if it were ours — §7:
		// "not surfaced" as an error.
		existing, ferr := e.txns.FindByIdempotencyKey(ctx, e.db, req.IdempotencyKey)
		if ferr != nil {
			return nil, apperr.Internal(ferr)
		}
		if existing == nil {
			return nil, apperr.Internal(errors.New("idempotency race reported but no committed transaction found"))
		}
		entries, ferr := e.ledger.ListByTransaction(ctx, e.db, existing.ID)
		if ferr != nil {
			return nil, apperr.Internal(ferr)
		}
		return &model.TransactionView{Transaction: *existing, Entries: entries}, nil
	}

	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal(err)
	}

	return view, nil
}

// validatePreconditions implements the assertions of §4.5 step 4.
func validatePreconditions(source, dest *model.Wallet, amount money.Amount) error {
	if !source.IsActive || !dest.IsActive {
		return apperr.Conflict("wallet is inactive")
	}
	if source.AssetTypeID != dest.AssetTypeID {
		return apperr.Conflict("asset type mismatch between wallets")
	}
	if source.ID == dest.ID {
		return apperr.Conflict("source and target wallet must differ")
	}
	if !amount.IsPositive() {
		return apperr.Validation("amount must be positive", nil)
	}
	if source.Balance.LessThan(amount) {
		return apperr.InsufficientFunds(source.Balance.String(), amount.String())
	}
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return "completed"
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindInsufficientFunds:
			return "insufficient_funds"
		case apperr.KindConflict:
			return "conflict"
		case apperr.KindNotFound:
			return "not_found"
		case apperr.KindValidation:
			return "validation_error"
		default:
			return "error"
		}
	}
	return "error"
}
