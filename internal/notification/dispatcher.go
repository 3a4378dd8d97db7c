package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/easner-transaction-sync/internal/domain/ledger"
	"github.com/easner-transaction-sync/internal/platform/messaging/producers"
)

// Dispatcher consumes status-change events and sends the matching email.
// Malformed messages go to the DLQ; email delivery failures are logged and
// the message is committed anyway, since a transactional email is not worth
// blocking the partition for.
type Dispatcher struct {
	sender Sender
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

// NewDispatcher creates a status-change event dispatcher. dlq may be nil
// when the dead letter queue is disabled.
func NewDispatcher(logger *slog.Logger, sender Sender, dlq producers.DeadLetterPublisher) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		dlq:    dlq,
		logger: logger,
	}
}

// HandleMessage processes one status-change message from Kafka
func (d *Dispatcher) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var change ledger.StatusChange
	if err := json.Unmarshal(value, &change); err != nil {
		d.logger.Error("Failed to unmarshal status change event, sending to DLQ",
			"key", string(key),
			"error", err,
		)
		if d.dlq != nil {
			if dlqErr := d.dlq.PublishToDLQ(ctx, string(key), value, "unmarshal_failed"); dlqErr != nil {
				return dlqErr
			}
		}
		// The message is unprocessable; commit past it
		return nil
	}

	templateName, ok := templateFor(change.NewStatus)
	if !ok {
		d.logger.Debug("No notification template for status, skipping",
			"transaction_id", change.TransactionID,
			"status", string(change.NewStatus),
		)
		return nil
	}

	if change.Email == "" {
		d.logger.Warn("Status change event has no recipient email, skipping",
			"transaction_id", change.TransactionID,
		)
		return nil
	}

	data := map[string]string{
		"first_name":     change.FirstName,
		"transaction_id": change.TransactionID,
		"transfer_type":  string(change.TransferType),
		"amount":         change.Amount.StringFixed(2),
		"currency":       strings.ToUpper(change.Currency),
		"status":         change.NewStatus.Display(),
	}
	if change.CompletedAt != nil {
		data["completed_at"] = change.CompletedAt.Format("Jan 2, 2006 15:04 MST")
	}

	if _, err := d.sender.Send(ctx, change.Email, templateName, data); err != nil {
		d.logger.Error("Failed to send status change email",
			"transaction_id", change.TransactionID,
			"template", templateName,
			"error", err,
		)
		// Fire-and-forget: do not hold the offset hostage for an email
		return nil
	}

	d.logger.Info("Status change notification sent",
		"transaction_id", change.TransactionID,
		"template", templateName,
	)
	return nil
}

// templateFor maps a milestone status to its email template
func templateFor(status ledger.Status) (string, bool) {
	switch status {
	case ledger.StatusFundsReceived:
		return TemplateTransferProcessing, true
	case ledger.StatusPaymentProcessed:
		return TemplateTransferCompleted, true
	default:
		return "", false
	}
}
