package service

import (
	"context"
	"encoding/json"

	"github.com/easner-transaction-sync/internal/domain/ledger"
	"github.com/easner-transaction-sync/internal/domain/legacy"
	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/easner-transaction-sync/internal/reconciliation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserSyncer runs one reconciliation pass for a user. Satisfied by
// reconciliation.Engine.
type UserSyncer interface {
	SyncUser(ctx context.Context, u *user.User) (*reconciliation.Report, error)
}

// PaymentMatcher pairs an inbound payment with a pending legacy transaction.
// Satisfied by reconciliation.Matcher.
type PaymentMatcher interface {
	Match(ctx context.Context, userID uuid.UUID, payment *legacy.Payment) (*reconciliation.MatchResult, error)
}

// SyncService defines the interface for reconciliation operations
type SyncService interface {
	// SyncUser runs a full reconciliation pass for one user
	// Returns user.ErrUserNotFound or user.ErrNoCustomerID when the user
	// cannot be synced
	SyncUser(ctx context.Context, userID uuid.UUID) (*reconciliation.Report, error)

	// HandleProviderEvent archives a webhook delivery and syncs the affected
	// user. The payload is kept verbatim for audit.
	HandleProviderEvent(ctx context.Context, eventID, customerID string, payload json.RawMessage) (*reconciliation.Report, error)
}

// TransactionService defines the interface for ledger queries
type TransactionService interface {
	// GetByTransactionID retrieves a ledger entry by its human-facing id
	// Returns nil if the entry is not found
	GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Entry, error)

	// ListByUser retrieves a paginated list of the user's ledger entries
	// Returns entries, total count, and any error
	ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)
}

// PaymentService defines the interface for inbound payment intake
type PaymentService interface {
	// RecordPayment records an inbound virtual-account payment and attempts
	// to match it against the user's pending transactions
	RecordPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency, reference string) (*legacy.Payment, *reconciliation.MatchResult, error)
}
