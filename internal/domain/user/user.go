// Package user holds the user records and their provider-side handles:
// the external customer id, custody wallet, virtual accounts and
// liquidation addresses a sync run needs to resolve.
package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an Easner account holder
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	BridgeCustomerID string    `json:"bridge_customer_id,omitempty"` // Empty until provider onboarding completes
	CreatedAt        time.Time `json:"created_at"`
}

// Wallet is the user's provider-side custody wallet
type Wallet struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	BridgeWalletID string    `json:"bridge_wallet_id"`
	Chain          string    `json:"chain"`
	Address        string    `json:"address"`
	CreatedAt      time.Time `json:"created_at"`
}

// VirtualAccount is a provider-issued deposit account whose activity feed
// drives receive-side reconciliation
type VirtualAccount struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	BridgeAccountID   string    `json:"bridge_account_id"`
	Currency          string    `json:"currency"`
	BankName          string    `json:"bank_name,omitempty"`
	AccountNumberTail string    `json:"account_number_tail,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// LiquidationAddress is a provider-issued on-chain address whose drain
// history drives payout reconciliation
type LiquidationAddress struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	BridgeAddressID string    `json:"bridge_address_id"`
	Chain           string    `json:"chain"`
	Address         string    `json:"address"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
}
