// Package legacy holds the legacy send-flow records: the transactions table
// that predates the provider-backed ledger, and the inbound virtual-account
// payments matched against it.
package legacy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus defines legacy transaction processing states
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Transaction is a legacy send-flow transfer awaiting an inbound payment
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	TransactionID string            `json:"transaction_id"` // Human-facing, ETID + 8 digits
	UserID        uuid.UUID         `json:"user_id"`
	TotalAmount   decimal.Decimal   `json:"total_amount"` // Total amount due, fees included
	SendCurrency  string            `json:"send_currency"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Payment is an inbound virtual-account payment recorded for a user.
// Unmatched payments stay in the table for manual reconciliation.
type Payment struct {
	ID                   uuid.UUID       `json:"id"`
	UserID               uuid.UUID       `json:"user_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Reference            string          `json:"reference,omitempty"` // Free-form sender reference, may carry a transaction id
	Matched              bool            `json:"matched"`
	MatchedAt            *time.Time      `json:"matched_at,omitempty"`
	MatchedTransactionID string          `json:"matched_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}
