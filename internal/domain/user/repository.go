package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository resolves users and their provider-side handles
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByCustomerID(ctx context.Context, customerID string) (*User, error)
	ListWithCustomerID(ctx context.Context, limit, offset int) ([]*User, error)
	ListVirtualAccounts(ctx context.Context, userID uuid.UUID) ([]*VirtualAccount, error)
	ListLiquidationAddresses(ctx context.Context, userID uuid.UUID) ([]*LiquidationAddress, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
}

// ErrUserNotFound indicates missing user
type ErrUserNotFound struct {
	Key string // id or email used for the lookup
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + e.Key
}

// Is implements the errors.Is interface for ErrUserNotFound
func (e ErrUserNotFound) Is(target error) bool {
	t, ok := target.(ErrUserNotFound)
	if !ok {
		return false
	}
	if t.Key == "" {
		return true
	}
	return e.Key == t.Key
}

// ErrNoCustomerID indicates the user has not completed provider onboarding,
// so no provider data can be synced for them
type ErrNoCustomerID struct {
	UserID uuid.UUID
}

func (e ErrNoCustomerID) Error() string {
	return "user has no provider customer id, complete onboarding first: " + e.UserID.String()
}

// Is implements the errors.Is interface for ErrNoCustomerID
func (e ErrNoCustomerID) Is(target error) bool {
	t, ok := target.(ErrNoCustomerID)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID
}
