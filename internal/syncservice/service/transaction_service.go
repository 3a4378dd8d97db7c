package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/easner-transaction-sync/internal/domain/ledger"
	"github.com/google/uuid"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, ledgerRepo ledger.Repository) TransactionService {
	return &TransactionServiceImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// GetByTransactionID retrieves a ledger entry by its human-facing id.
// Returns nil if not found
func (s *TransactionServiceImpl) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Entry, error) {
	entry, err := s.ledgerRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		var errEntryNotFound ledger.ErrEntryNotFound
		if errors.As(err, &errEntryNotFound) {
			s.logger.Info("Transaction not found", "transaction_id", transactionID)
			return nil, nil
		}
		s.logger.Error("Failed to get transaction", "transaction_id", transactionID, "error", err)
		return nil, err
	}
	return entry, nil
}

// ListByUser retrieves a paginated list of the user's ledger entries
// Returns entries, total count, and any error
func (s *TransactionServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.ListByUser(ctx, userID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
