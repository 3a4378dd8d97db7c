package handler

// WebhookEventRequest is the envelope of a provider webhook delivery. Only
// the routing fields are bound; the payload is archived verbatim.
type WebhookEventRequest struct {
	EventType  string `json:"event_type"`
	EventID    string `json:"event_id"`
	CustomerID string `json:"customer_id" binding:"required"`
}

// RecordPaymentRequest represents an inbound virtual-account payment to match
// against the user's pending transactions
type RecordPaymentRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required,len=3"`
	Reference string `json:"reference,omitempty"`
}

// PaymentResponse represents the outcome of recording one inbound payment
type PaymentResponse struct {
	PaymentID     string `json:"payment_id"`
	Matched       bool   `json:"matched"`
	TransactionID string `json:"transaction_id,omitempty"`
	MatchedBy     string `json:"matched_by,omitempty"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	TransactionID     string `json:"transaction_id"`
	UserID            string `json:"user_id"`
	TransferType      string `json:"transfer_type"`
	Direction         string `json:"direction"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	StatusDisplay     string `json:"status_display"`
	ExternalReference string `json:"external_reference,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
