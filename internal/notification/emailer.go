// Package notification delivers transactional emails on transaction status
// changes. Delivery is fire-and-forget from the caller's point of view:
// failures are logged and surfaced, never allowed to block a status update.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/easner-transaction-sync/internal/config"
)

// Template names for the status transition emails
const (
	TemplateTransferProcessing = "transfer_processing"
	TemplateTransferCompleted  = "transfer_completed"
)

// Sender delivers one templated email
type Sender interface {
	Send(ctx context.Context, to, templateName string, data map[string]string) (*SendResult, error)
}

// SendResult is the provider's acknowledgment of one delivery
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
}

// Emailer sends templated emails through the email provider's REST API
type Emailer struct {
	baseURL     string
	apiKey      string
	fromAddress string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewEmailer creates an email sender from configuration
func NewEmailer(logger *slog.Logger, cfg *config.EmailConfig) *Emailer {
	return &Emailer{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		fromAddress: cfg.FromAddress,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

type sendRequest struct {
	From         string            `json:"from"`
	To           string            `json:"to"`
	TemplateName string            `json:"template_name"`
	Data         map[string]string `json:"data"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Send delivers one templated email
func (e *Emailer) Send(ctx context.Context, to, templateName string, data map[string]string) (*SendResult, error) {
	payload, err := json.Marshal(sendRequest{
		From:         e.fromAddress,
		To:           to,
		TemplateName: templateName,
		Data:         data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read email response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		e.logger.Error("Email provider rejected delivery",
			"status_code", resp.StatusCode,
			"template", templateName,
		)
		return &SendResult{Success: false}, fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode email response: %w", err)
	}

	e.logger.Debug("Email delivered",
		"template", templateName,
		"message_id", parsed.MessageID,
	)
	return &SendResult{Success: true, MessageID: parsed.MessageID}, nil
}
