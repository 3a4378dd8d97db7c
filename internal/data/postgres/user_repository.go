package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/easner-transaction-sync/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(logger *slog.Logger, db *persistence.PostgresDB) user.Repository {
	return &UserRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const userColumns = `id, email, first_name, bridge_customer_id, created_at`

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	u, err := scanUser(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{Key: id.String()}
		}
		r.logger.Error("Failed to get user", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`

	u, err := scanUser(r.querier.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{Key: email}
		}
		r.logger.Error("Failed to get user by email", "error", err)
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return u, nil
}

// GetByCustomerID retrieves the user owning a provider customer id. Webhook
// ingest uses it to map provider notifications back to a user.
func (r *UserRepository) GetByCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE bridge_customer_id = $1
	`

	u, err := scanUser(r.querier.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{Key: customerID}
		}
		r.logger.Error("Failed to get user by customer id", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to get user by customer id: %w", err)
	}

	return u, nil
}

// ListWithCustomerID pages through users that completed provider onboarding
func (r *UserRepository) ListWithCustomerID(ctx context.Context, limit, offset int) ([]*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE bridge_customer_id IS NOT NULL AND bridge_customer_id <> ''
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list users with customer id", "error", err)
		return nil, fmt.Errorf("failed to list users with customer id: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// ListVirtualAccounts returns the user's provider-issued deposit accounts
func (r *UserRepository) ListVirtualAccounts(ctx context.Context, userID uuid.UUID) ([]*user.VirtualAccount, error) {
	query := `
		SELECT id, user_id, bridge_account_id, currency, bank_name, account_number_tail, created_at
		FROM bridge_virtual_accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list virtual accounts", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list virtual accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*user.VirtualAccount
	for rows.Next() {
		var (
			account  user.VirtualAccount
			bankName *string
			tail     *string
		)
		if err := rows.Scan(&account.ID, &account.UserID, &account.BridgeAccountID, &account.Currency, &bankName, &tail, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan virtual account: %w", err)
		}
		if bankName != nil {
			account.BankName = *bankName
		}
		if tail != nil {
			account.AccountNumberTail = *tail
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate virtual accounts: %w", err)
	}

	return accounts, nil
}

// ListLiquidationAddresses returns the user's provider-issued on-chain
// payout addresses
func (r *UserRepository) ListLiquidationAddresses(ctx context.Context, userID uuid.UUID) ([]*user.LiquidationAddress, error) {
	query := `
		SELECT id, user_id, bridge_address_id, chain, address, currency, created_at
		FROM bridge_liquidation_addresses
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list liquidation addresses", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list liquidation addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*user.LiquidationAddress
	for rows.Next() {
		var address user.LiquidationAddress
		if err := rows.Scan(&address.ID, &address.UserID, &address.BridgeAddressID, &address.Chain, &address.Address, &address.Currency, &address.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan liquidation address: %w", err)
		}
		addresses = append(addresses, &address)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate liquidation addresses: %w", err)
	}

	return addresses, nil
}

// GetWallet returns the user's custody wallet, or (nil, nil) when the user
// has none yet
func (r *UserRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*user.Wallet, error) {
	query := `
		SELECT id, user_id, bridge_wallet_id, chain, address, created_at
		FROM bridge_wallets
		WHERE user_id = $1
	`

	var w user.Wallet
	err := r.querier.QueryRow(ctx, query, userID).Scan(&w.ID, &w.UserID, &w.BridgeWalletID, &w.Chain, &w.Address, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get wallet", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &w, nil
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u          user.User
		customerID *string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &customerID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if customerID != nil {
		u.BridgeCustomerID = *customerID
	}
	return &u, nil
}
