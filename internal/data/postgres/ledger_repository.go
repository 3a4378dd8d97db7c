// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while keeping uniqueness
// violations distinguishable so the reconciliation engine can react to them.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easner-transaction-sync/internal/domain/ledger"
	"github.com/easner-transaction-sync/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Unique constraint names from the bridge_transactions schema. Create maps
// them to distinct domain errors so callers can tell an id collision from a
// duplicate transfer.
const (
	constraintTransactionID = "bridge_transactions_transaction_id_key"
	constraintGroupingKey   = "bridge_transactions_grouping_key_idx"
	constraintExternalRef   = "bridge_transactions_external_reference_idx"
)

const entryColumns = `id, transaction_id, user_id, transfer_type, direction, amount, currency,
		status, grouping_key, external_reference, source, destination, receipt,
		raw_metadata, created_at, updated_at, completed_at, provider_created_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing atomic operations
// across multiple repository calls
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new ledger entry. Uniqueness violations map to
// ledger.ErrDuplicateTransactionID (human-facing id collision, caller
// regenerates and retries) or ledger.ErrDuplicateEntry (the transfer is
// already recorded, caller updates the existing row instead).
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO bridge_transactions (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.TransactionID,
		entry.UserID,
		entry.TransferType,
		entry.Direction,
		entry.Amount,
		entry.Currency,
		entry.Status,
		nullable(entry.GroupingKey),
		nullable(entry.ExternalReference),
		entry.Source,
		entry.Destination,
		entry.Receipt,
		entry.RawMetadata,
		entry.CreatedAt,
		entry.UpdatedAt,
		entry.CompletedAt,
		entry.ProviderCreatedAt,
	)
	if err != nil {
		if dupErr := mapUniqueViolation(err, entry); dupErr != nil {
			return dupErr
		}
		r.logger.Error("Failed to create ledger entry", "transaction_id", entry.TransactionID, "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// mapUniqueViolation translates a postgres unique violation into the domain
// error matching the violated constraint
func mapUniqueViolation(err error, entry *ledger.Entry) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != persistence.UniqueViolationCode {
		return nil
	}
	switch {
	case pgErr.ConstraintName == constraintTransactionID:
		return ledger.ErrDuplicateTransactionID{TransactionID: entry.TransactionID}
	case pgErr.ConstraintName == constraintGroupingKey:
		return ledger.ErrDuplicateEntry{GroupingKey: entry.GroupingKey}
	case pgErr.ConstraintName == constraintExternalRef:
		return ledger.ErrDuplicateEntry{ExternalReference: entry.ExternalReference}
	case strings.Contains(pgErr.ConstraintName, "transaction_id"):
		return ledger.ErrDuplicateTransactionID{TransactionID: entry.TransactionID}
	default:
		return ledger.ErrDuplicateEntry{
			GroupingKey:       entry.GroupingKey,
			ExternalReference: entry.ExternalReference,
		}
	}
}

// Update rewrites the mutable fields of an existing entry
func (r *LedgerRepository) Update(ctx context.Context, entry *ledger.Entry) error {
	query := `
		UPDATE bridge_transactions
		SET status = $1, external_reference = $2, receipt = $3, raw_metadata = $4,
		    updated_at = $5, completed_at = $6
		WHERE id = $7
	`

	tag, err := r.querier.Exec(ctx, query,
		entry.Status,
		nullable(entry.ExternalReference),
		entry.Receipt,
		entry.RawMetadata,
		entry.UpdatedAt,
		entry.CompletedAt,
		entry.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update ledger entry", "transaction_id", entry.TransactionID, "error", err)
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{TransactionID: entry.TransactionID}
	}

	return nil
}

// GetByTransactionID retrieves an entry by its human-facing transaction id
func (r *LedgerRepository) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM bridge_transactions
		WHERE transaction_id = $1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get ledger entry", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// FindByGroupingKey locates the entry for a provider deposit id.
// Returns (nil, nil) when no entry matches.
func (r *LedgerRepository) FindByGroupingKey(ctx context.Context, userID uuid.UUID, transferType ledger.TransferType, groupingKey string) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM bridge_transactions
		WHERE user_id = $1 AND transfer_type = $2 AND grouping_key = $3
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, userID, transferType, groupingKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find ledger entry by grouping key", "grouping_key", groupingKey, "error", err)
		return nil, fmt.Errorf("failed to find ledger entry by grouping key: %w", err)
	}

	return entry, nil
}

// FindByExternalReference locates the entry whose latest known event id
// equals ref. Returns (nil, nil) when no entry matches.
func (r *LedgerRepository) FindByExternalReference(ctx context.Context, userID uuid.UUID, transferType ledger.TransferType, ref string) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM bridge_transactions
		WHERE user_id = $1 AND transfer_type = $2 AND external_reference = $3
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, userID, transferType, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find ledger entry by external reference", "external_reference", ref, "error", err)
		return nil, fmt.Errorf("failed to find ledger entry by external reference: %w", err)
	}

	return entry, nil
}

// FindFuzzy locates an entry by amount within a small tolerance, currency and
// a provider timestamp window. Returns (nil, nil) when no entry matches.
func (r *LedgerRepository) FindFuzzy(ctx context.Context, userID uuid.UUID, transferType ledger.TransferType, amount decimal.Decimal, currency string, at time.Time, window time.Duration) (*ledger.Entry, error) {
	tolerance := decimal.NewFromFloat(0.01)
	query := `
		SELECT ` + entryColumns + `
		FROM bridge_transactions
		WHERE user_id = $1 AND transfer_type = $2
		  AND currency = $3
		  AND amount BETWEEN $4 AND $5
		  AND provider_created_at BETWEEN $6 AND $7
		ORDER BY provider_created_at DESC
		LIMIT 1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query,
		userID,
		transferType,
		currency,
		amount.Sub(tolerance),
		amount.Add(tolerance),
		at.Add(-window),
		at.Add(window),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find ledger entry by fuzzy match", "amount", amount.String(), "error", err)
		return nil, fmt.Errorf("failed to find ledger entry by fuzzy match: %w", err)
	}

	return entry, nil
}

// ListByUser returns the user's entries newest first
func (r *LedgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM bridge_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// CountByUser returns the number of entries for a user
func (r *LedgerRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM bridge_transactions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *LedgerRepository) scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		entry       ledger.Entry
		groupingKey *string
		externalRef *string
	)
	err := row.Scan(
		&entry.ID,
		&entry.TransactionID,
		&entry.UserID,
		&entry.TransferType,
		&entry.Direction,
		&entry.Amount,
		&entry.Currency,
		&entry.Status,
		&groupingKey,
		&externalRef,
		&entry.Source,
		&entry.Destination,
		&entry.Receipt,
		&entry.RawMetadata,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&entry.CompletedAt,
		&entry.ProviderCreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if groupingKey != nil {
		entry.GroupingKey = *groupingKey
	}
	if externalRef != nil {
		entry.ExternalReference = *externalRef
	}
	return &entry, nil
}

// nullable maps an empty string to SQL NULL so partial unique indexes on the
// column ignore rows without a value
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
