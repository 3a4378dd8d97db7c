package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/easner-transaction-sync/internal/domain/legacy"
	"github.com/easner-transaction-sync/internal/platform/persistence"
	"github.com/easner-transaction-sync/internal/txid"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LegacyRepository implements the legacy.Repository interface for PostgreSQL
type LegacyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLegacyRepository creates a new PostgreSQL legacy transaction repository
func NewLegacyRepository(logger *slog.Logger, db *persistence.PostgresDB) legacy.Repository {
	return &LegacyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const transactionColumns = `id, transaction_id, user_id, total_amount, send_currency, status, created_at, updated_at`

// GetPendingByTransactionID returns the user's pending transaction with the
// given human-facing id, or (nil, nil) when none qualifies
func (r *LegacyRepository) GetPendingByTransactionID(ctx context.Context, userID uuid.UUID, transactionID string) (*legacy.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND transaction_id = $2 AND status = $3
	`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, userID, transactionID, legacy.TransactionStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get pending transaction", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get pending transaction: %w", err)
	}

	return tx, nil
}

// ListRecentPending returns the user's most recent pending transactions in
// the given currency, newest first
func (r *LegacyRepository) ListRecentPending(ctx context.Context, userID uuid.UUID, currency string, limit int) ([]*legacy.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND LOWER(send_currency) = LOWER($2) AND status = $3
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := r.querier.Query(ctx, query, userID, currency, legacy.TransactionStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to list pending transactions", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*legacy.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// AdvanceToProcessing moves a pending transaction to processing. The status
// filter in the WHERE clause makes the transition atomic: a second caller
// sees zero affected rows and gets ErrTransactionNotPending.
func (r *LegacyRepository) AdvanceToProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	tag, err := r.querier.Exec(ctx, query, legacy.TransactionStatusProcessing, id, legacy.TransactionStatusPending)
	if err != nil {
		r.logger.Error("Failed to advance transaction to processing", "id", id.String(), "error", err)
		return fmt.Errorf("failed to advance transaction to processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return legacy.ErrTransactionNotPending{ID: id}
	}

	return nil
}

// CreatePayment records an inbound payment
func (r *LegacyRepository) CreatePayment(ctx context.Context, payment *legacy.Payment) error {
	query := `
		INSERT INTO bridge_payments (id, user_id, amount, currency, reference, matched, matched_at, matched_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	_, err := r.querier.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Reference,
		payment.Matched,
		payment.MatchedAt,
		nullable(payment.MatchedTransactionID),
		payment.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", "payment_id", payment.ID.String(), "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// MarkPaymentMatched stamps a payment as matched to a transaction
func (r *LegacyRepository) MarkPaymentMatched(ctx context.Context, paymentID uuid.UUID, transactionID string, at time.Time) error {
	query := `
		UPDATE bridge_payments
		SET matched = TRUE, matched_transaction_id = $1, matched_at = $2
		WHERE id = $3
	`

	_, err := r.querier.Exec(ctx, query, transactionID, at, paymentID)
	if err != nil {
		r.logger.Error("Failed to mark payment matched", "payment_id", paymentID.String(), "error", err)
		return fmt.Errorf("failed to mark payment matched: %w", err)
	}

	return nil
}

// ListLegacyFormatIDs returns transactions whose human-facing id does not
// follow the current ETID format, for the one-time id migration
func (r *LegacyRepository) ListLegacyFormatIDs(ctx context.Context, limit int) ([]*legacy.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE transaction_id !~ $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, `^`+txid.Prefix+`\d{8}$`, limit)
	if err != nil {
		r.logger.Error("Failed to list legacy format transaction ids", "error", err)
		return nil, fmt.Errorf("failed to list legacy format transaction ids: %w", err)
	}
	defer rows.Close()

	var transactions []*legacy.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// RewriteTransactionID replaces the human-facing id of one transaction
func (r *LegacyRepository) RewriteTransactionID(ctx context.Context, id uuid.UUID, newTransactionID string) error {
	query := `
		UPDATE transactions
		SET transaction_id = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.querier.Exec(ctx, query, newTransactionID, id)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return legacy.ErrDuplicateTransactionID{TransactionID: newTransactionID}
		}
		r.logger.Error("Failed to rewrite transaction id", "id", id.String(), "error", err)
		return fmt.Errorf("failed to rewrite transaction id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}

	return nil
}

func scanTransaction(row rowScanner) (*legacy.Transaction, error) {
	var tx legacy.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.TransactionID,
		&tx.UserID,
		&tx.TotalAmount,
		&tx.SendCurrency,
		&tx.Status,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
