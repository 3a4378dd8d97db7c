package legacy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages legacy transaction and payment persistence
type Repository interface {
	// GetPendingByTransactionID returns the user's pending transaction with the
	// given human-facing id, or (nil, nil) when none qualifies
	GetPendingByTransactionID(ctx context.Context, userID uuid.UUID, transactionID string) (*Transaction, error)

	// ListRecentPending returns the user's most recent pending transactions in
	// the given currency, newest first
	ListRecentPending(ctx context.Context, userID uuid.UUID, currency string, limit int) ([]*Transaction, error)

	// AdvanceToProcessing moves a pending transaction to processing.
	// Returns ErrTransactionNotPending if the row is no longer pending.
	AdvanceToProcessing(ctx context.Context, id uuid.UUID) error

	CreatePayment(ctx context.Context, payment *Payment) error

	// MarkPaymentMatched stamps a payment as matched to a transaction
	MarkPaymentMatched(ctx context.Context, paymentID uuid.UUID, transactionID string, at time.Time) error

	// ListLegacyFormatIDs returns transactions whose human-facing id does not
	// follow the current ETID format, for the one-time id migration
	ListLegacyFormatIDs(ctx context.Context, limit int) ([]*Transaction, error)

	// RewriteTransactionID replaces the human-facing id of one transaction
	RewriteTransactionID(ctx context.Context, id uuid.UUID, newTransactionID string) error
}

// ErrDuplicateTransactionID indicates a human-facing transaction id rewrite
// collided with an existing id. The caller regenerates and retries.
type ErrDuplicateTransactionID struct {
	TransactionID string
}

func (e ErrDuplicateTransactionID) Error() string {
	return "duplicate transaction id: " + e.TransactionID
}

// Is implements the errors.Is interface for ErrDuplicateTransactionID
func (e ErrDuplicateTransactionID) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransactionID)
	if !ok {
		return false
	}
	if t.TransactionID == "" {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrTransactionNotPending indicates a pending-only transition was attempted
// on a transaction that already moved forward
type ErrTransactionNotPending struct {
	ID uuid.UUID
}

func (e ErrTransactionNotPending) Error() string {
	return "transaction is not pending: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotPending
func (e ErrTransactionNotPending) Is(target error) bool {
	t, ok := target.(ErrTransactionNotPending)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
