package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/easner-transaction-sync/internal/domain/legacy"
	"github.com/easner-transaction-sync/internal/reconciliation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	matcher PaymentMatcher
	logger  *slog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(logger *slog.Logger, matcher PaymentMatcher) PaymentService {
	return &PaymentServiceImpl{
		matcher: matcher,
		logger:  logger,
	}
}

// RecordPayment records an inbound virtual-account payment and attempts to
// match it against the user's pending transactions. The payment is persisted
// either way; an unmatched one stays for manual review.
func (s *PaymentServiceImpl) RecordPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency, reference string) (*legacy.Payment, *reconciliation.MatchResult, error) {
	payment := &legacy.Payment{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Currency:  strings.ToLower(currency),
		Reference: strings.TrimSpace(reference),
		CreatedAt: time.Now().UTC(),
	}

	result, err := s.matcher.Match(ctx, userID, payment)
	if err != nil {
		return nil, nil, err
	}

	return payment, result, nil
}
