// Package migration carries the one-time rewrite of legacy human-facing
// transaction ids to the current ETID format.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/easner-transaction-sync/internal/domain/legacy"
	"github.com/easner-transaction-sync/internal/txid"
)

const (
	// idMigrationBatch is how many transactions one pass rewrites. Rewritten
	// rows drop out of the legacy-format filter, so repeated fetches of the
	// first batch walk the whole table.
	idMigrationBatch = 500

	// maxRewriteAttempts bounds id regeneration when a generated id collides
	maxRewriteAttempts = 5
)

// IDMigrationReport summarizes one migration run
type IDMigrationReport struct {
	Scanned   int  `json:"scanned"`
	Rewritten int  `json:"rewritten"`
	Failures  int  `json:"failures"`
	DryRun    bool `json:"dry_run"`
}

// TransactionIDMigrator rewrites legacy-format transaction ids in place.
// New ids are generated with the same collision-retry discipline the
// reconciliation engine uses on insert.
type TransactionIDMigrator struct {
	legacyRepo legacy.Repository
	logger     *slog.Logger

	sleep func(time.Duration)
}

// NewTransactionIDMigrator creates a transaction id migrator
func NewTransactionIDMigrator(logger *slog.Logger, legacyRepo legacy.Repository) *TransactionIDMigrator {
	return &TransactionIDMigrator{
		legacyRepo: legacyRepo,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Run rewrites every transaction whose id does not follow the ETID format.
// In dry-run mode it only reports what the first batch would rewrite.
func (m *TransactionIDMigrator) Run(ctx context.Context, dryRun bool) (*IDMigrationReport, error) {
	report := &IDMigrationReport{DryRun: dryRun}

	for {
		transactions, err := m.legacyRepo.ListLegacyFormatIDs(ctx, idMigrationBatch)
		if err != nil {
			return report, fmt.Errorf("failed to list legacy format ids: %w", err)
		}
		if len(transactions) == 0 {
			break
		}

		report.Scanned += len(transactions)

		if dryRun {
			for _, tx := range transactions {
				m.logger.Info("Would rewrite transaction id",
					"id", tx.ID.String(),
					"old_transaction_id", tx.TransactionID,
				)
			}
			// Without rewrites the filter keeps returning the same rows
			break
		}

		batchRewritten := 0
		for _, tx := range transactions {
			if err := m.rewriteOne(ctx, tx); err != nil {
				report.Failures++
				m.logger.Error("Failed to migrate transaction id",
					"id", tx.ID.String(),
					"old_transaction_id", tx.TransactionID,
					"error", err,
				)
				continue
			}
			batchRewritten++
		}
		report.Rewritten += batchRewritten

		// Failed rows stay in the filter; a batch with no progress would
		// refetch them forever
		if batchRewritten == 0 {
			return report, errors.New("transaction id migration made no progress")
		}
		if len(transactions) < idMigrationBatch {
			break
		}
	}

	m.logger.Info("Transaction id migration finished",
		"scanned", report.Scanned,
		"rewritten", report.Rewritten,
		"failures", report.Failures,
		"dry_run", dryRun,
	)

	return report, nil
}

func (m *TransactionIDMigrator) rewriteOne(ctx context.Context, tx *legacy.Transaction) error {
	var lastErr error
	for attempt := 0; attempt < maxRewriteAttempts; attempt++ {
		newID := txid.Generate()
		err := m.legacyRepo.RewriteTransactionID(ctx, tx.ID, newID)
		if err == nil {
			m.logger.Info("Rewrote transaction id",
				"id", tx.ID.String(),
				"old_transaction_id", tx.TransactionID,
				"new_transaction_id", newID,
			)
			return nil
		}
		if !errors.Is(err, legacy.ErrDuplicateTransactionID{}) {
			return err
		}
		lastErr = err
		m.sleep(time.Duration(25+rand.IntN(75)) * time.Millisecond)
	}
	return fmt.Errorf("exhausted %d id rewrite attempts: %w", maxRewriteAttempts, lastErr)
}
