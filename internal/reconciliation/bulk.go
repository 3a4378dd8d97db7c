package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/panjf2000/ants/v2"
)

// BulkReport aggregates the per-user outcomes of a full sync sweep
type BulkReport struct {
	UsersSynced int `json:"users_synced"`
	UsersFailed int `json:"users_failed"`
	Report
}

// BulkSyncer runs the reconciliation engine across every provisioned user
// with a bounded worker pool
type BulkSyncer struct {
	engine   *Engine
	userRepo user.Repository
	workers  int
	logger   *slog.Logger
}

// NewBulkSyncer creates a bulk syncer running at most workers concurrent
// user syncs
func NewBulkSyncer(logger *slog.Logger, engine *Engine, userRepo user.Repository, workers int) *BulkSyncer {
	if workers <= 0 {
		workers = 1
	}
	return &BulkSyncer{
		engine:   engine,
		userRepo: userRepo,
		workers:  workers,
		logger:   logger,
	}
}

// bulkPageSize is the user page size for the sweep
const bulkPageSize = 200

// SyncAll syncs every user that has a provider customer id. A failed user
// is counted and logged; the sweep continues.
func (b *BulkSyncer) SyncAll(ctx context.Context) (*BulkReport, error) {
	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = &BulkReport{}
	)

	for offset := 0; ; offset += bulkPageSize {
		users, err := b.userRepo.ListWithCustomerID(ctx, bulkPageSize, offset)
		if err != nil {
			b.logger.Error("Failed to list users for bulk sync", "offset", offset, "error", err)
			wg.Wait()
			return nil, err
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			u := u
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()

				userReport, err := b.engine.SyncUser(ctx, u)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.UsersFailed++
					if !errors.Is(err, user.ErrNoCustomerID{}) {
						b.logger.Error("User sync failed", "user_id", u.ID.String(), "error", err)
					}
					return
				}
				report.UsersSynced++
				report.Report.merge(userReport)
			})
			if submitErr != nil {
				wg.Done()
				mu.Lock()
				report.UsersFailed++
				mu.Unlock()
				b.logger.Error("Failed to submit user sync task", "user_id", u.ID.String(), "error", submitErr)
			}
		}

		if len(users) < bulkPageSize {
			break
		}
	}

	wg.Wait()

	b.logger.Info("Bulk sync finished",
		"users_synced", report.UsersSynced,
		"users_failed", report.UsersFailed,
		"created", report.EntriesCreated,
		"updated", report.EntriesUpdated,
	)
	return report, nil
}
