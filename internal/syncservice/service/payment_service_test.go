package service

import (
	"context"
	"testing"

	"github.com/easner-transaction-sync/internal/domain/legacy"
	"github.com/easner-transaction-sync/internal/reconciliation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentMatcher struct {
	mock.Mock
}

func (m *MockPaymentMatcher) Match(ctx context.Context, userID uuid.UUID, payment *legacy.Payment) (*reconciliation.MatchResult, error) {
	args := m.Called(ctx, userID, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.MatchResult), args.Error(1)
}

func TestPaymentService_RecordPayment(t *testing.T) {
	logger := newTestLogger()

	t.Run("BuildsNormalizedPayment", func(t *testing.T) {
		mockMatcher := new(MockPaymentMatcher)
		svc := NewPaymentService(logger, mockMatcher)

		userID := uuid.New()
		result := &reconciliation.MatchResult{Matched: true, TransactionID: "ETID00000042", MatchedBy: "reference"}
		mockMatcher.On("Match", mock.Anything, userID, mock.MatchedBy(func(p *legacy.Payment) bool {
			return p.ID != uuid.Nil &&
				p.UserID == userID &&
				p.Currency == "usd" &&
				p.Reference == "ETID00000042" &&
				p.Amount.Equal(decimal.RequireFromString("150.00"))
		})).Return(result, nil)

		payment, got, err := svc.RecordPayment(context.Background(), userID, decimal.RequireFromString("150.00"), "USD", " ETID00000042 ")

		require.NoError(t, err)
		assert.Equal(t, result, got)
		assert.Equal(t, "usd", payment.Currency)
		assert.Equal(t, "ETID00000042", payment.Reference)
		mockMatcher.AssertExpectations(t)
	})

	t.Run("MatcherError", func(t *testing.T) {
		mockMatcher := new(MockPaymentMatcher)
		svc := NewPaymentService(logger, mockMatcher)

		mockMatcher.On("Match", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)

		payment, result, err := svc.RecordPayment(context.Background(), uuid.New(), decimal.NewFromInt(10), "USD", "")

		assert.Nil(t, payment)
		assert.Nil(t, result)
		assert.Error(t, err)
	})
}
