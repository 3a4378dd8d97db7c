package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository manages ledger entry persistence.
//
// The three Find methods back the reconciliation engine's dedup key
// resolution order; each returns (nil, nil) when no entry matches so the
// engine can fall through to the next key without error juggling.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	Update(ctx context.Context, entry *Entry) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Entry, error)

	// FindByGroupingKey locates the entry for a provider deposit id
	FindByGroupingKey(ctx context.Context, userID uuid.UUID, transferType TransferType, groupingKey string) (*Entry, error)

	// FindByExternalReference locates the entry whose latest known event id equals ref
	FindByExternalReference(ctx context.Context, userID uuid.UUID, transferType TransferType, ref string) (*Entry, error)

	// FindFuzzy locates an entry by amount, currency and a provider timestamp window
	FindFuzzy(ctx context.Context, userID uuid.UUID, transferType TransferType, amount decimal.Decimal, currency string, at time.Time, window time.Duration) (*Entry, error)

	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	TransactionID string
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.TransactionID
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// An empty target TransactionID matches any ErrEntryNotFound
	if t.TransactionID == "" {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateTransactionID indicates the human-facing transaction id
// collided on insert. The caller regenerates the id and retries.
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

// ErrDuplicateEntry indicates a concurrent process already recorded the same
// underlying transfer (grouping key or external reference uniqueness). The
// engine recovers by locating and updating the existing row.
type ErrDuplicateEntry struct {
	GroupingKey       string
	ExternalReference string
}

func (e ErrDuplicateEntry) Error() string {
	if e.GroupingKey != "" {
		return "duplicate ledger entry for grouping key: " + e.GroupingKey
	}
	return "duplicate ledger entry for external reference: " + e.ExternalReference
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.GroupingKey == "" && t.ExternalReference == "" {
		return true
	}
	return e.GroupingKey == t.GroupingKey && e.ExternalReference == t.ExternalReference
}
