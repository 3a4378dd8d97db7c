package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/easner-transaction-sync/internal/domain/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(newTestLogger(), &config.BridgeConfig{
		BaseURL:       serverURL,
		APIKey:        "test-key",
		Timeout:       5 * time.Second,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	})
}

func TestClient_ListActivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/customers/cust_1/virtual_accounts/va_1/history", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"count": 3,
			"data": [
				{"id":"act_1","type":"funds_received","amount":"50.00","currency":"USDC","deposit_id":"dep_1","created_at":"2024-01-02T10:00:00Z"},
				{"id":"act_2","type":"account_update","created_at":"2024-01-02T11:00:00Z"},
				{"id":"act_3","type":"payment_processed","amount":"50.00","currency":"usdc","deposit_id":"dep_1","created_at":"2024-01-02T12:00:00Z","receipt":{"final_amount":"49.50","destination_tx_hash":"0xabc"}}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	events, err := client.ListActivity(context.Background(), "cust_1", "va_1")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "act_1", events[0].ID)
	assert.Equal(t, provider.EventKindTransfer, events[0].Kind)
	assert.Equal(t, "funds_received", events[0].Status)
	assert.True(t, events[0].Amount.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, "usdc", events[0].Currency)
	assert.Equal(t, "dep_1", events[0].DepositID)
	assert.NotEmpty(t, events[0].Raw)

	assert.Equal(t, provider.EventKindAccountUpdate, events[1].Kind)

	require.NotNil(t, events[2].Receipt)
	assert.True(t, events[2].Receipt.FinalAmount.Equal(decimal.RequireFromString("49.50")))
	assert.Equal(t, "0xabc", events[2].Receipt.DestinationTxHash)
}

func TestClient_ListActivity_SkipsMalformedRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"count": 2,
			"data": [
				{"id":"act_bad","type":"funds_received","amount":"not-a-number","currency":"usd","created_at":"2024-01-02T10:00:00Z"},
				{"id":"act_ok","type":"funds_received","amount":"10.00","currency":"usd","created_at":"2024-01-02T10:00:00Z"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	events, err := client.ListActivity(context.Background(), "cust_1", "va_1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "act_ok", events[0].ID)
}

func TestClient_ListDrains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/customers/cust_1/liquidation_addresses/la_1/drains", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"count": 1,
			"data": [
				{"id":"drain_1","state":"payment_processed","amount":"120.00","currency":"usdc","deposit_id":"dep_9","created_at":"2024-02-01T09:30:00Z","destination_tx_hash":"0xdef"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	drains, err := client.ListDrains(context.Background(), "cust_1", "la_1")
	require.NoError(t, err)
	require.Len(t, drains, 1)

	assert.Equal(t, "drain_1", drains[0].ID)
	assert.Equal(t, "payment_processed", drains[0].Status)
	assert.Equal(t, "dep_9", drains[0].DepositID)
	assert.Equal(t, "0xdef", drains[0].DestinationTxHash)
}

func TestClient_ListTransfers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/transfers", r.URL.Path)
		assert.Equal(t, "cust_1", r.URL.Query().Get("customer_id"))
		_, _ = w.Write([]byte(`{
			"count": 1,
			"data": [
				{"id":"transfer_1","state":"payment_submitted","amount":"75.25","currency":"usd","created_at":"2024-03-01T08:00:00Z",
				 "destination":{"payment_rail":"Crypto","chain":"Ethereum","to_address":"0xfeed"}}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	transfers, err := client.ListTransfers(context.Background(), "cust_1")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "transfer_1", transfers[0].ID)
	assert.Equal(t, "payment_submitted", transfers[0].Status)
	require.NotNil(t, transfers[0].Destination)
	assert.Equal(t, "crypto", transfers[0].Destination.Kind)
	assert.Equal(t, "ethereum", transfers[0].Destination.Chain)
	assert.Equal(t, "0xfeed", transfers[0].Destination.Address)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"count":0,"data":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	transfers, err := client.ListTransfers(context.Background(), "cust_1")
	require.NoError(t, err)
	assert.Empty(t, transfers)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad api key"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ListTransfers(context.Background(), "cust_1")
	require.Error(t, err)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}
