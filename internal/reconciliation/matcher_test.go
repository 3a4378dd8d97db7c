package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/easner-transaction-sync/internal/domain/legacy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLegacyRepo struct {
	mock.Mock
}

func (m *mockLegacyRepo) GetPendingByTransactionID(ctx context.Context, userID uuid.UUID, transactionID string) (*legacy.Transaction, error) {
	args := m.Called(ctx, userID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*legacy.Transaction), args.Error(1)
}

func (m *mockLegacyRepo) ListRecentPending(ctx context.Context, userID uuid.UUID, currency string, limit int) ([]*legacy.Transaction, error) {
	args := m.Called(ctx, userID, currency, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*legacy.Transaction), args.Error(1)
}

func (m *mockLegacyRepo) AdvanceToProcessing(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockLegacyRepo) CreatePayment(ctx context.Context, payment *legacy.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockLegacyRepo) MarkPaymentMatched(ctx context.Context, paymentID uuid.UUID, transactionID string, at time.Time) error {
	args := m.Called(ctx, paymentID, transactionID, at)
	return args.Error(0)
}

func (m *mockLegacyRepo) ListLegacyFormatIDs(ctx context.Context, limit int) ([]*legacy.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*legacy.Transaction), args.Error(1)
}

func (m *mockLegacyRepo) RewriteTransactionID(ctx context.Context, id uuid.UUID, newTransactionID string) error {
	args := m.Called(ctx, id, newTransactionID)
	return args.Error(0)
}

func pendingTransaction(userID uuid.UUID, transactionID, amount, currency string) *legacy.Transaction {
	return &legacy.Transaction{
		ID:            uuid.New(),
		TransactionID: transactionID,
		UserID:        userID,
		TotalAmount:   decimal.RequireFromString(amount),
		SendCurrency:  currency,
		Status:        legacy.TransactionStatusPending,
	}
}

func inboundPayment(userID uuid.UUID, amount, currency, reference string) *legacy.Payment {
	return &legacy.Payment{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
		Reference: reference,
	}
}

func TestMatcherExactReference(t *testing.T) {
	repo := new(mockLegacyRepo)
	matcher := NewMatcher(testLogger(), repo)
	userID := uuid.New()

	tx := pendingTransaction(userID, "ETID00000001", "25.50", "USD")
	payment := inboundPayment(userID, "25.50", "usd", "ETID00000001")
	repo.On("CreatePayment", mock.Anything, payment).Return(nil)
	repo.On("GetPendingByTransactionID", mock.Anything, userID, "ETID00000001").Return(tx, nil)
	repo.On("AdvanceToProcessing", mock.Anything, tx.ID).Return(nil)
	repo.On("MarkPaymentMatched", mock.Anything, payment.ID, "ETID00000001", mock.AnythingOfType("time.Time")).Return(nil)

	result, err := matcher.Match(context.Background(), userID, payment)

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "ETID00000001", result.TransactionID)
	assert.Equal(t, "reference", result.MatchedBy)
	assert.True(t, payment.Matched)
	require.NotNil(t, payment.MatchedAt)
	repo.AssertExpectations(t)
}

func TestMatcherReferenceEmbeddedInBankNarrative(t *testing.T) {
	repo := new(mockLegacyRepo)
	matcher := NewMatcher(testLogger(), repo)
	userID := uuid.New()

	tx := pendingTransaction(userID, "ETID00000001", "25.50", "USD")
	repo.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetPendingByTransactionID", mock.Anything, userID, "ETID00000001").Return(tx, nil)
	repo.On("AdvanceToProcessing", mock.Anything, tx.ID).Return(nil)
	repo.On("MarkPaymentMatched", mock.Anything, mock.Anything, "ETID00000001", mock.AnythingOfType("time.Time")).Return(nil)

	// Banks wrap the reference in free text and mangle the casing
	payment := inboundPayment(userID, "25.50", "usd", "TRANSFER REF etid00000001 / J SMITH")
	result, err := matcher.Match(context.Background(), userID, payment)

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "reference", result.MatchedBy)
}

func TestMatcherReferenceRequiresAmountAndCurrencyAgreement(t *testing.T) {
	t.Run("amount mismatch falls through to scan", func(t *testing.T) {
		repo := new(mockLegacyRepo)
		matcher := NewMatcher(testLogger(), repo)
		userID := uuid.New()

		// The referenced transaction owes far more than the payment carries
		referenced := pendingTransaction(userID, "ETID00000001", "25.50", "USD")
		other := pendingTransaction(userID, "ETID00000002", "10.00", "USD")
		payment := inboundPayment(userID, "10.00", "usd", "ETID00000001")
		repo.On("CreatePayment", mock.Anything, payment).Return(nil)
		repo.On("GetPendingByTransactionID", mock.Anything, userID, "ETID00000001").Return(referenced, nil)
		repo.On("ListRecentPending", mock.Anything, userID, "usd", recentPendingScan).
			Return([]*legacy.Transaction{referenced, other}, nil)
		repo.On("AdvanceToProcessing", mock.Anything, other.ID).Return(nil)
		repo.On("MarkPaymentMatched", mock.Anything, payment.ID, "ETID00000002", mock.AnythingOfType("time.Time")).Return(nil)

		result, err := matcher.Match(context.Background(), userID, payment)

		require.NoError(t, err)
		assert.True(t, result.Matched)
		assert.Equal(t, "ETID00000002", result.TransactionID)
		assert.Equal(t, "amount", result.MatchedBy)
		repo.AssertExpectations(t)
	})

	t.Run("currency mismatch leaves payment unmatched", func(t *testing.T) {
		repo := new(mockLegacyRepo)
		matcher := NewMatcher(testLogger(), repo)
		userID := uuid.New()

		referenced := pendingTransaction(userID, "ETID00000001", "25.50", "EUR")
		payment := inboundPayment(userID, "25.50", "usd", "ETID00000001")
		repo.On("CreatePayment", mock.Anything, payment).Return(nil)
		repo.On("GetPendingByTransactionID", mock.Anything, userID, "ETID00000001").Return(referenced, nil)
		repo.On("ListRecentPending", mock.Anything, userID, "usd", recentPendingScan).
			Return([]*legacy.Transaction{}, nil)

		result, err := matcher.Match(context.Background(), userID, payment)

		require.NoError(t, err)
		assert.False(t, result.Matched)
		repo.AssertNotCalled(t, "AdvanceToProcessing", mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})
}

func TestMatcherFallbackAmountScan(t *testing.T) {
	repo := new(mockLegacyRepo)
	matcher := NewMatcher(testLogger(), repo)
	userID := uuid.New()

	tx := pendingTransaction(userID, "ETID00000001", "25.50", "USD")
	repo.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
	repo.On("ListRecentPending", mock.Anything, userID, "usd", recentPendingScan).
		Return([]*legacy.Transaction{tx}, nil)
	repo.On("AdvanceToProcessing", mock.Anything, tx.ID).Return(nil)
	repo.On("MarkPaymentMatched", mock.Anything, mock.Anything, "ETID00000001", mock.AnythingOfType("time.Time")).Return(nil)

	result, err := matcher.Match(context.Background(), userID, inboundPayment(userID, "25.50", "usd", ""))

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "ETID00000001", result.TransactionID)
	assert.Equal(t, "amount", result.MatchedBy)
	repo.AssertExpectations(t)
}

func TestMatcherAmountToleranceBoundary(t *testing.T) {
	tests := []struct {
		name        string
		txAmount    string
		paid        string
		wantMatched bool
	}{
		{name: "within tolerance", txAmount: "100.009", paid: "100.00", wantMatched: true},
		{name: "outside tolerance", txAmount: "100.02", paid: "100.00", wantMatched: false},
		{name: "exact", txAmount: "42.00", paid: "42.00", wantMatched: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockLegacyRepo)
			matcher := NewMatcher(testLogger(), repo)
			userID := uuid.New()

			tx := pendingTransaction(userID, "ETID00000001", tt.txAmount, "USD")
			repo.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
			repo.On("ListRecentPending", mock.Anything, userID, "usd", recentPendingScan).
				Return([]*legacy.Transaction{tx}, nil)
			if tt.wantMatched {
				repo.On("AdvanceToProcessing", mock.Anything, tx.ID).Return(nil)
				repo.On("MarkPaymentMatched", mock.Anything, mock.Anything, "ETID00000001", mock.AnythingOfType("time.Time")).Return(nil)
			}

			result, err := matcher.Match(context.Background(), userID, inboundPayment(userID, tt.paid, "usd", ""))

			require.NoError(t, err)
			assert.Equal(t, tt.wantMatched, result.Matched)
		})
	}
}

func TestMatcherNoMatchRecordsPayment(t *testing.T) {
	repo := new(mockLegacyRepo)
	matcher := NewMatcher(testLogger(), repo)
	userID := uuid.New()

	repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *legacy.Payment) bool {
		return !p.Matched && p.MatchedTransactionID == ""
	})).Return(nil)
	repo.On("ListRecentPending", mock.Anything, userID, "usd", recentPendingScan).
		Return([]*legacy.Transaction{}, nil)

	payment := inboundPayment(userID, "999.99", "usd", "")
	result, err := matcher.Match(context.Background(), userID, payment)

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Empty(t, result.TransactionID)
	assert.False(t, payment.Matched)
	repo.AssertExpectations(t)
}

func TestMatcherLosesRaceToAnotherProcess(t *testing.T) {
	repo := new(mockLegacyRepo)
	matcher := NewMatcher(testLogger(), repo)
	userID := uuid.New()

	tx := pendingTransaction(userID, "ETID00000001", "25.50", "USD")
	repo.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetPendingByTransactionID", mock.Anything, userID, "ETID00000001").Return(tx, nil)
	repo.On("AdvanceToProcessing", mock.Anything, tx.ID).
		Return(legacy.ErrTransactionNotPending{ID: tx.ID})

	payment := inboundPayment(userID, "25.50", "usd", "ETID00000001")
	result, err := matcher.Match(context.Background(), userID, payment)

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.False(t, payment.Matched)
	repo.AssertExpectations(t)
}

func TestExtractTransactionID(t *testing.T) {
	tests := []struct {
		reference string
		want      string
	}{
		{"ETID00000001", "ETID00000001"},
		{"etid00000001", "ETID00000001"},
		{"REF ETID12345678 END", "ETID12345678"},
		{"ETID123", ""},          // too short
		{"ETIDABCDEFGH", ""},     // not digits
		{"no reference here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractTransactionID(tt.reference), "reference %q", tt.reference)
	}
}
