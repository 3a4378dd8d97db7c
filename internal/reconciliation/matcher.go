package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/easner-transaction-sync/internal/domain/legacy"
	"github.com/easner-transaction-sync/internal/txid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// recentPendingScan bounds the fallback scan over the user's pending
	// transactions
	recentPendingScan = 10
)

// amountTolerance absorbs rounding differences between the payer's bank and
// the recorded transaction amount
var amountTolerance = decimal.NewFromFloat(0.01)

// MatchResult describes the outcome of matching one inbound payment
type MatchResult struct {
	Matched       bool   `json:"matched"`
	TransactionID string `json:"transaction_id,omitempty"`
	MatchedBy     string `json:"matched_by,omitempty"` // reference or amount
}

// Matcher pairs inbound payment notifications with pending legacy
// transactions
type Matcher struct {
	legacyRepo legacy.Repository
	logger     *slog.Logger

	now func() time.Time
}

// NewMatcher creates a payment matcher
func NewMatcher(logger *slog.Logger, legacyRepo legacy.Repository) *Matcher {
	return &Matcher{
		legacyRepo: legacyRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// Match pairs the payment with one of the user's pending transactions and
// advances the transaction to processing. Resolution is by payment reference
// first; when the reference does not resolve, the most recent pending
// transactions in the payment's currency are scanned for an amount match
// within tolerance. An unmatched payment is recorded and left for manual
// review.
func (m *Matcher) Match(ctx context.Context, userID uuid.UUID, payment *legacy.Payment) (*MatchResult, error) {
	logger := m.logger.With("user_id", userID.String(), "payment_id", payment.ID.String())

	// Record the payment first; on any failure below it stays unmatched for
	// manual reconciliation
	if err := m.legacyRepo.CreatePayment(ctx, payment); err != nil {
		logger.Error("Failed to record inbound payment", "error", err)
		return nil, err
	}

	tx, matchedBy, err := m.resolve(ctx, userID, payment)
	if err != nil {
		return nil, err
	}

	if tx == nil {
		logger.Info("No pending transaction matched payment",
			"amount", payment.Amount.String(),
			"currency", payment.Currency,
		)
		return &MatchResult{Matched: false}, nil
	}

	if err := m.legacyRepo.AdvanceToProcessing(ctx, tx.ID); err != nil {
		// Another process claimed the transaction between lookup and
		// transition; leave the payment unmatched
		if errors.Is(err, legacy.ErrTransactionNotPending{}) {
			logger.Warn("Matched transaction no longer pending, leaving payment unmatched",
				"transaction_id", tx.TransactionID,
			)
			return &MatchResult{Matched: false}, nil
		}
		logger.Error("Failed to advance transaction to processing",
			"transaction_id", tx.TransactionID,
			"error", err,
		)
		return nil, err
	}

	matchedAt := m.now()
	if err := m.legacyRepo.MarkPaymentMatched(ctx, payment.ID, tx.TransactionID, matchedAt); err != nil {
		logger.Error("Failed to mark payment matched", "transaction_id", tx.TransactionID, "error", err)
		return nil, err
	}
	payment.Matched = true
	payment.MatchedTransactionID = tx.TransactionID
	payment.MatchedAt = &matchedAt

	logger.Info("Payment matched",
		"transaction_id", tx.TransactionID,
		"matched_by", matchedBy,
	)
	return &MatchResult{
		Matched:       true,
		TransactionID: tx.TransactionID,
		MatchedBy:     matchedBy,
	}, nil
}

func (m *Matcher) resolve(ctx context.Context, userID uuid.UUID, payment *legacy.Payment) (*legacy.Transaction, string, error) {
	if ref := extractTransactionID(payment.Reference); ref != "" {
		tx, err := m.legacyRepo.GetPendingByTransactionID(ctx, userID, ref)
		if err != nil {
			return nil, "", err
		}
		if tx != nil {
			if paymentMatches(tx, payment) {
				return tx, "reference", nil
			}
			// The reference resolves but the money disagrees; treat it as
			// a typo and keep looking
			m.logger.Warn("Referenced transaction disagrees on amount or currency",
				"transaction_id", tx.TransactionID,
				"transaction_amount", tx.TotalAmount.String(),
				"payment_amount", payment.Amount.String(),
			)
		}
	}

	candidates, err := m.legacyRepo.ListRecentPending(ctx, userID, payment.Currency, recentPendingScan)
	if err != nil {
		return nil, "", err
	}
	for _, tx := range candidates {
		if paymentMatches(tx, payment) {
			return tx, "amount", nil
		}
	}
	return nil, "", nil
}

// paymentMatches reports whether the payment settles the transaction: same
// currency ignoring case, amounts equal within tolerance
func paymentMatches(tx *legacy.Transaction, payment *legacy.Payment) bool {
	if !strings.EqualFold(tx.SendCurrency, payment.Currency) {
		return false
	}
	return tx.TotalAmount.Sub(payment.Amount).Abs().LessThanOrEqual(amountTolerance)
}

// extractTransactionID pulls a well-formed transaction id out of a free-text
// bank reference, tolerating surrounding text and casing
func extractTransactionID(reference string) string {
	upper := strings.ToUpper(reference)
	idx := strings.Index(upper, txid.Prefix)
	if idx < 0 {
		return ""
	}
	candidate := upper[idx:]
	if len(candidate) > len(txid.Prefix)+txid.DigitCount {
		candidate = candidate[:len(txid.Prefix)+txid.DigitCount]
	}
	if !txid.Valid(candidate) {
		return ""
	}
	return candidate
}
