package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType defines the side of a transfer the entry records
type TransferType string

const (
	TransferTypeSend    TransferType = "send"
	TransferTypeReceive TransferType = "receive"
)

// Direction defines the money movement relative to the user
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// DirectionFor derives the ledger direction from the transfer type
func DirectionFor(t TransferType) Direction {
	if t == TransferTypeSend {
		return DirectionDebit
	}
	return DirectionCredit
}

// Endpoint describes the origin or destination of a transfer:
// a virtual account, liquidation address, external bank account,
// on-chain address or wallet.
type Endpoint struct {
	Kind      string `json:"kind,omitempty"`
	ID        string `json:"id,omitempty"`
	BankName  string `json:"bank_name,omitempty"`
	Last4     string `json:"last4,omitempty"`
	Chain     string `json:"chain,omitempty"`
	Address   string `json:"address,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Receipt holds settlement metadata attached once the provider reports it
type Receipt struct {
	FinalAmount       *decimal.Decimal `json:"final_amount,omitempty"`
	DestinationTxHash string           `json:"destination_tx_hash,omitempty"`
	TraceNumber       string           `json:"trace_number,omitempty"`
	IMAD              string           `json:"imad,omitempty"`
}

// Empty reports whether the receipt carries no settlement metadata
func (r *Receipt) Empty() bool {
	return r == nil || (r.FinalAmount == nil && r.DestinationTxHash == "" && r.TraceNumber == "" && r.IMAD == "")
}

// Entry represents one money transfer (send or receive) in the ledger.
// It is created on the first observed provider event for a transfer and
// mutated in place as later events arrive; it is never deleted.
type Entry struct {
	ID                uuid.UUID       `json:"id"`
	TransactionID     string          `json:"transaction_id"` // Human-facing, ETID + 8 digits
	UserID            uuid.UUID       `json:"user_id"`
	TransferType      TransferType    `json:"transfer_type"`
	Direction         Direction       `json:"direction"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"` // Normalized to lowercase
	Status            Status          `json:"status"`
	GroupingKey       string          `json:"grouping_key,omitempty"`       // Provider deposit id, stable across events
	ExternalReference string          `json:"external_reference,omitempty"` // Most recently applied provider event id
	Source            *Endpoint       `json:"source,omitempty"`
	Destination       *Endpoint       `json:"destination,omitempty"`
	Receipt           *Receipt        `json:"receipt,omitempty"`
	RawMetadata       json.RawMessage `json:"raw_metadata,omitempty"` // Verbatim provider payload of the latest applied event
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"` // Set once, on first transition to payment_processed
	ProviderCreatedAt time.Time       `json:"provider_created_at"`
}
