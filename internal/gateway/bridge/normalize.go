package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/easner-transaction-sync/internal/domain/provider"
	"github.com/shopspring/decimal"
)

// classifyActivity maps the vendor's overloaded type field to an event kind
func classifyActivity(activityType string) provider.EventKind {
	switch strings.ToLower(activityType) {
	case "account_update":
		return provider.EventKindAccountUpdate
	case "activation":
		return provider.EventKindAccountActivation
	case "deactivation":
		return provider.EventKindAccountDeactivation
	case "microdeposit", "micro_deposit":
		return provider.EventKindMicroDeposit
	case "awaiting_funds", "funds_scheduled", "in_review", "funds_received",
		"payment_submitted", "payment_processed", "refunded":
		return provider.EventKindTransfer
	default:
		return provider.EventKindUnknown
	}
}

func normalizeReceipt(r *receiptRecord) (*provider.Receipt, error) {
	if r == nil {
		return nil, nil
	}

	receipt := &provider.Receipt{
		DestinationTxHash: r.DestinationTxHash,
		TraceNumber:       r.TraceNumber,
		IMAD:              r.IMAD,
	}
	if r.FinalAmount != "" {
		amount, err := decimal.NewFromString(r.FinalAmount)
		if err != nil {
			return nil, fmt.Errorf("invalid receipt final_amount %q: %w", r.FinalAmount, err)
		}
		receipt.FinalAmount = &amount
	}
	return receipt, nil
}

func normalizeActivity(raw json.RawMessage) (provider.Event, error) {
	var rec activityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return provider.Event{}, fmt.Errorf("failed to decode activity record: %w", err)
	}
	if rec.ID == "" {
		return provider.Event{}, fmt.Errorf("activity record has no id")
	}

	event := provider.Event{
		ID:        rec.ID,
		Kind:      classifyActivity(rec.Type),
		Status:    strings.ToLower(rec.Type),
		Currency:  strings.ToLower(rec.Currency),
		DepositID: rec.DepositID,
		Raw:       raw,
	}

	// Lifecycle events carry no amount; parse it only for funds movement
	if event.Kind == provider.EventKindTransfer {
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			return provider.Event{}, fmt.Errorf("invalid activity amount %q for %s: %w", rec.Amount, rec.ID, err)
		}
		event.Amount = amount
	}

	if rec.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			return provider.Event{}, fmt.Errorf("invalid activity created_at %q for %s: %w", rec.CreatedAt, rec.ID, err)
		}
		event.CreatedAt = createdAt
	}

	receipt, err := normalizeReceipt(rec.Receipt)
	if err != nil {
		return provider.Event{}, fmt.Errorf("activity %s: %w", rec.ID, err)
	}
	event.Receipt = receipt

	return event, nil
}

func normalizeDrain(raw json.RawMessage) (provider.Drain, error) {
	var rec drainRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return provider.Drain{}, fmt.Errorf("failed to decode drain record: %w", err)
	}
	if rec.ID == "" {
		return provider.Drain{}, fmt.Errorf("drain record has no id")
	}

	amount, err := decimal.NewFromString(rec.Amount)
	if err != nil {
		return provider.Drain{}, fmt.Errorf("invalid drain amount %q for %s: %w", rec.Amount, rec.ID, err)
	}

	drain := provider.Drain{
		ID:                rec.ID,
		Status:            strings.ToLower(rec.State),
		Amount:            amount,
		Currency:          strings.ToLower(rec.Currency),
		DepositID:         rec.DepositID,
		DestinationTxHash: rec.DestinationTxHash,
		Raw:               raw,
	}

	if rec.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			return provider.Drain{}, fmt.Errorf("invalid drain created_at %q for %s: %w", rec.CreatedAt, rec.ID, err)
		}
		drain.CreatedAt = createdAt
	}

	receipt, err := normalizeReceipt(rec.Receipt)
	if err != nil {
		return provider.Drain{}, fmt.Errorf("drain %s: %w", rec.ID, err)
	}
	drain.Receipt = receipt

	return drain, nil
}

// normalizeDestination maps the vendor's transfer destination sub-object to
// the common endpoint shape
func normalizeDestination(d *destinationRecord) *provider.Endpoint {
	if d == nil {
		return nil
	}
	return &provider.Endpoint{
		Kind:     strings.ToLower(d.PaymentRail),
		ID:       d.ExternalAccountID,
		BankName: d.BankName,
		Last4:    d.AccountNumberTail,
		Chain:    strings.ToLower(d.Chain),
		Address:  d.ToAddress,
	}
}

func normalizeTransfer(raw json.RawMessage) (provider.Transfer, error) {
	var rec transferRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return provider.Transfer{}, fmt.Errorf("failed to decode transfer record: %w", err)
	}
	if rec.ID == "" {
		return provider.Transfer{}, fmt.Errorf("transfer record has no id")
	}

	amount, err := decimal.NewFromString(rec.Amount)
	if err != nil {
		return provider.Transfer{}, fmt.Errorf("invalid transfer amount %q for %s: %w", rec.Amount, rec.ID, err)
	}

	transfer := provider.Transfer{
		ID:          rec.ID,
		Status:      strings.ToLower(rec.State),
		Amount:      amount,
		Currency:    strings.ToLower(rec.Currency),
		Destination: normalizeDestination(rec.Destination),
		Raw:         raw,
	}

	if rec.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			return provider.Transfer{}, fmt.Errorf("invalid transfer created_at %q for %s: %w", rec.CreatedAt, rec.ID, err)
		}
		transfer.CreatedAt = createdAt
	}

	receipt, err := normalizeReceipt(rec.Receipt)
	if err != nil {
		return provider.Transfer{}, fmt.Errorf("transfer %s: %w", rec.ID, err)
	}
	transfer.Receipt = receipt

	return transfer, nil
}
