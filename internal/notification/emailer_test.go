package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmailer(t *testing.T, handler http.HandlerFunc) (*Emailer, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	emailer := NewEmailer(testLogger(), &config.EmailConfig{
		BaseURL:     server.URL,
		APIKey:      "test-key",
		FromAddress: "notifications@easner.com",
		Timeout:     2 * time.Second,
	})
	return emailer, server
}

func TestEmailerSend(t *testing.T) {
	emailer, _ := newTestEmailer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/send", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "notifications@easner.com", req["from"])
		assert.Equal(t, "amina@example.com", req["to"])
		assert.Equal(t, TemplateTransferCompleted, req["template_name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message_id":"msg_123"}`))
	})

	result, err := emailer.Send(context.Background(), "amina@example.com", TemplateTransferCompleted,
		map[string]string{"transaction_id": "ETID00000001"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "msg_123", result.MessageID)
}

func TestEmailerSendProviderError(t *testing.T) {
	emailer, _ := newTestEmailer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"unknown template"}`))
	})

	result, err := emailer.Send(context.Background(), "amina@example.com", "nope", nil)

	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestEmailerSendAcceptedStatus(t *testing.T) {
	emailer, _ := newTestEmailer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message_id":"msg_queued"}`))
	})

	result, err := emailer.Send(context.Background(), "amina@example.com", TemplateTransferProcessing, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "msg_queued", result.MessageID)
}
