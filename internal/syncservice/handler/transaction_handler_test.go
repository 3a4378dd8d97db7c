package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/easner-transaction-sync/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// PaginatedResponse is a generic version of Response for testing paginated data
type PaginatedResponse[T any] struct {
	Data          []T        `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockTransactionService) ListByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func testEntry(userID uuid.UUID) *ledger.Entry {
	completed := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)
	return &ledger.Entry{
		ID:                uuid.New(),
		TransactionID:     "ETID12345678",
		UserID:            userID,
		TransferType:      ledger.TransferTypeReceive,
		Direction:         ledger.DirectionCredit,
		Amount:            decimal.RequireFromString("250.50"),
		Currency:          "usd",
		Status:            ledger.StatusPaymentProcessed,
		ExternalReference: "evt_1",
		CreatedAt:         time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		UpdatedAt:         completed,
		CompletedAt:       &completed,
	}
}

func TestTransactionHandler_GetByTransactionID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransactionService)
		h := NewTransactionHandler(logger, mockService)

		userID := uuid.New()
		entry := testEntry(userID)
		mockService.On("GetByTransactionID", mock.Anything, "ETID12345678").Return(entry, nil)

		router := gin.New()
		router.GET("/transactions/:txid", h.GetByTransactionID)

		req, _ := http.NewRequest(http.MethodGet, "/transactions/ETID12345678", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data TransactionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

		assert.Equal(t, "ETID12345678", resp.Data.TransactionID)
		assert.Equal(t, userID.String(), resp.Data.UserID)
		assert.Equal(t, "USD", resp.Data.Currency, "currency should be presented uppercase")
		assert.Equal(t, "250.5", resp.Data.Amount)
		assert.Equal(t, "payment_processed", resp.Data.Status)
		assert.Equal(t, "completed", resp.Data.StatusDisplay)
		assert.NotEmpty(t, resp.Data.CompletedAt)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidTransactionID", func(t *testing.T) {
		mockService := new(MockTransactionService)
		h := NewTransactionHandler(logger, mockService)

		router := gin.New()
		router.GET("/transactions/:txid", h.GetByTransactionID)

		req, _ := http.NewRequest(http.MethodGet, "/transactions/not-an-etid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetByTransactionID")
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockTransactionService)
		h := NewTransactionHandler(logger, mockService)

		mockService.On("GetByTransactionID", mock.Anything, "ETID00000001").Return(nil, nil)

		router := gin.New()
		router.GET("/transactions/:txid", h.GetByTransactionID)

		req, _ := http.NewRequest(http.MethodGet, "/transactions/ETID00000001", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestTransactionHandler_ListByUser(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransactionService)
		h := NewTransactionHandler(logger, mockService)

		userID := uuid.New()
		entries := []*ledger.Entry{testEntry(userID), testEntry(userID)}
		mockService.On("ListByUser", mock.Anything, userID, 2, 10).Return(entries, int64(12), nil)

		router := gin.New()
		router.GET("/users/:id/transactions", h.ListByUser)

		req, _ := http.NewRequest(http.MethodGet, "/users/"+userID.String()+"/transactions?page=2&per_page=10", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp PaginatedResponse[TransactionResponse]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

		assert.Len(t, resp.Data, 2)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 12, resp.Meta.TotalItems)
		assert.Equal(t, 2, resp.Meta.TotalPages)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidUserID", func(t *testing.T) {
		mockService := new(MockTransactionService)
		h := NewTransactionHandler(logger, mockService)

		router := gin.New()
		router.GET("/users/:id/transactions", h.ListByUser)

		req, _ := http.NewRequest(http.MethodGet, "/users/nope/transactions", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ListByUser")
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		mockService := new(MockTransactionService)
		h := NewTransactionHandler(logger, mockService)

		router := gin.New()
		router.GET("/users/:id/transactions", h.ListByUser)

		req, _ := http.NewRequest(http.MethodGet, "/users/"+uuid.New().String()+"/transactions?per_page=1000", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ListByUser")
	})
}
