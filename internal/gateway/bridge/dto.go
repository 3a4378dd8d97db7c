package bridge

import "encoding/json"

// Vendor wire shapes. These never leave this package; normalize.go converts
// them into the provider package's types.

type listResponse struct {
	Count int               `json:"count"`
	Data  []json.RawMessage `json:"data"`
}

type receiptRecord struct {
	FinalAmount       string `json:"final_amount,omitempty"`
	DestinationTxHash string `json:"destination_tx_hash,omitempty"`
	TraceNumber       string `json:"trace_number,omitempty"`
	IMAD              string `json:"imad,omitempty"`
}

// activityRecord is one virtual-account history item. The vendor overloads
// the type field: funds-movement items carry the payment status there, while
// account lifecycle items carry an event name.
type activityRecord struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Amount    string         `json:"amount"`
	Currency  string         `json:"currency"`
	DepositID string         `json:"deposit_id,omitempty"`
	CreatedAt string         `json:"created_at"`
	Receipt   *receiptRecord `json:"receipt,omitempty"`
}

type drainRecord struct {
	ID                string         `json:"id"`
	State             string         `json:"state"`
	Amount            string         `json:"amount"`
	Currency          string         `json:"currency"`
	DepositID         string         `json:"deposit_id,omitempty"`
	CreatedAt         string         `json:"created_at"`
	DestinationTxHash string         `json:"destination_tx_hash,omitempty"`
	Receipt           *receiptRecord `json:"receipt,omitempty"`
}

type destinationRecord struct {
	PaymentRail       string `json:"payment_rail,omitempty"`
	Chain             string `json:"chain,omitempty"`
	ToAddress         string `json:"to_address,omitempty"`
	ExternalAccountID string `json:"external_account_id,omitempty"`
	BankName          string `json:"bank_name,omitempty"`
	AccountNumberTail string `json:"account_number_tail,omitempty"`
}

type transferRecord struct {
	ID          string             `json:"id"`
	State       string             `json:"state"`
	Amount      string             `json:"amount"`
	Currency    string             `json:"currency"`
	CreatedAt   string             `json:"created_at"`
	Destination *destinationRecord `json:"destination,omitempty"`
	Receipt     *receiptRecord     `json:"receipt,omitempty"`
}
