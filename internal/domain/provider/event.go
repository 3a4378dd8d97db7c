// Package provider defines the normalized shapes of payment-provider data.
// Vendor JSON is converted into these types at the gateway boundary; nothing
// past that boundary touches raw provider payloads except to archive them.
package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies a virtual-account activity record
type EventKind string

const (
	// EventKindTransfer is a funds-movement event; the only kind that can
	// create or update ledger entries
	EventKindTransfer EventKind = "transfer"

	EventKindAccountUpdate       EventKind = "account_update"
	EventKindAccountActivation   EventKind = "account_activation"
	EventKindAccountDeactivation EventKind = "account_deactivation"
	EventKindMicroDeposit        EventKind = "micro_deposit"
	EventKindUnknown             EventKind = "unknown"
)

// Endpoint describes one side of a transfer: the virtual account a deposit
// lands in, the liquidation address a drain left, or the payout destination
// of an outbound transfer.
type Endpoint struct {
	Kind      string
	ID        string
	BankName  string
	Last4     string
	Chain     string
	Address   string
	Reference string
}

// Receipt is the provider's settlement metadata sub-object
type Receipt struct {
	FinalAmount       *decimal.Decimal
	DestinationTxHash string
	TraceNumber       string
	IMAD              string
}

// Empty reports whether the receipt carries no settlement metadata
func (r *Receipt) Empty() bool {
	return r == nil || (r.FinalAmount == nil && r.DestinationTxHash == "" && r.TraceNumber == "" && r.IMAD == "")
}

// Event is one normalized virtual-account activity record
type Event struct {
	ID          string
	Kind        EventKind
	Status      string // Provider-native status string
	Amount      decimal.Decimal
	Currency    string
	DepositID   string // Grouping key, stable across events for one transfer; may be empty
	CreatedAt   time.Time
	Source      *Endpoint
	Destination *Endpoint
	Receipt     *Receipt
	Raw         json.RawMessage // Verbatim vendor payload, retained for audit
}

// Drain is one normalized liquidation-address drain record
type Drain struct {
	ID                string
	Status            string
	Amount            decimal.Decimal
	Currency          string
	DepositID         string
	CreatedAt         time.Time
	DestinationTxHash string
	Receipt           *Receipt
	Raw               json.RawMessage
}

// Transfer is one normalized outbound transfer record. Transfers are always
// uniquely identified at creation, so they carry no separate grouping key.
type Transfer struct {
	ID          string
	Status      string
	Amount      decimal.Decimal
	Currency    string
	CreatedAt   time.Time
	Destination *Endpoint
	Receipt     *Receipt
	Raw         json.RawMessage
}

// Gateway is the read surface of a payment provider used by reconciliation
type Gateway interface {
	ListActivity(ctx context.Context, customerID, accountID string) ([]Event, error)
	ListDrains(ctx context.Context, customerID, liquidationAddressID string) ([]Drain, error)
	ListTransfers(ctx context.Context, customerID string) ([]Transfer, error)
}
