// Package model defines the five persisted entities of §3 and the request/
// response DTOs the transport layer exchanges with clients.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coreledger/wallet-ledger/internal/money"
	"github.com/google/uuid"
)

// OwnerKind distinguishes a user-owned wallet from a system-role wallet.
type OwnerKind string

const (
	OwnerUser   OwnerKind = "user"
	OwnerSystem OwnerKind = "system"
)

// TransactionKind is one of the three business flows.
type TransactionKind string

const (
	KindTopup TransactionKind = "topup"
	KindBonus TransactionKind = "bonus"
	KindSpend TransactionKind = "spend"
)

// TransactionStatus tracks a Transaction through its lifecycle.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// LedgerSide is debit or credit.
type LedgerSide string

const (
	SideDebit  LedgerSide = "debit"
	SideCredit LedgerSide = "credit"
)

// AssetType is a fungible currency class wallets are denominated in.
type AssetType struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Wallet is a balance holder for exactly one asset type.
type Wallet struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     string        `json:"ownerId"`
	OwnerKind   OwnerKind     `json:"ownerKind"`
	AssetTypeID uuid.UUID     `json:"assetTypeId"`
	Balance     money.Amount  `json:"balance"`
	IsActive    bool          `json:"isActive"`
	Name        string        `json:"name"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Metadata is the arbitrary key-value bag attached to a Transaction. It
// implements Value/Scan so it can be bound directly to and read back from
// a JSONB column.
type Metadata map[string]any

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*m = Metadata{}
		return nil
	}
	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("metadata: unmarshal: %w", err)
	}
	*m = out
	return nil
}

// Transaction is a business event mutating exactly two wallets.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	Kind            TransactionKind   `json:"kind"`
	Status          TransactionStatus `json:"status"`
	UserWalletID    uuid.UUID         `json:"userWalletId"`
	SystemWalletID  uuid.UUID         `json:"systemWalletId"`
	Amount          money.Amount      `json:"amount"`
	ReferenceID     *string           `json:"referenceId,omitempty"`
	IdempotencyKey  *string           `json:"-"`
	Description     string            `json:"description,omitempty"`
	Metadata        Metadata          `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// LedgerEntry is an immutable posting against one wallet.
type LedgerEntry struct {
	ID             uuid.UUID    `json:"id"`
	TransactionID  uuid.UUID    `json:"transactionId"`
	WalletID       uuid.UUID    `json:"walletId"`
	Side           LedgerSide   `json:"side"`
	Amount         money.Amount `json:"amount"`
	BalanceBefore  money.Amount `json:"balanceBefore"`
	BalanceAfter   money.Amount `json:"balanceAfter"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// IdempotencyRecord is a cached response envelope keyed by (key, path).
type IdempotencyRecord struct {
	ID             uuid.UUID `json:"id"`
	Key            string    `json:"key"`
	RequestPath    string    `json:"requestPath"`
	ResponseStatus int       `json:"responseStatus"`
	ResponseBody   []byte    `json:"responseBody"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// TransactionView is what §6 mutation and detail endpoints return: a
// completed transaction plus its two postings.
type TransactionView struct {
	Transaction Transaction   `json:"transaction"`
	Entries     []LedgerEntry `json:"entries"`
}

// Pagination is the envelope's optional pagination block.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// MutationRequest is the shared shape of the three §6 mutation bodies; flow-
// specific fields (referenceId/reason/serviceId) are optional here and are
// read by the handler for the flow in question.
type MutationRequest struct {
	WalletID       uuid.UUID `json:"walletId"`
	SystemWalletID uuid.UUID `json:"systemWalletId"`
	Amount         string    `json:"amount"`
	ReferenceID    string    `json:"referenceId,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ServiceID      string    `json:"serviceId,omitempty"`
	Description    string    `json:"description,omitempty"`
	Metadata       Metadata  `json:"metadata,omitempty"`
}
