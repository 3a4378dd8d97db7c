package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusChange is the message published when a ledger entry reaches a new
// milestone. The notifier consumes it to send the user an email.
type StatusChange struct {
	TransactionID string          `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Email         string          `json:"email"`
	FirstName     string          `json:"first_name,omitempty"`
	TransferType  TransferType    `json:"transfer_type"`
	OldStatus     Status          `json:"old_status,omitempty"`
	NewStatus     Status          `json:"new_status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
