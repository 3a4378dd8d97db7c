package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/easner-transaction-sync/internal/reconciliation"
	"github.com/google/uuid"
)

// SyncServiceImpl implements the SyncService interface
type SyncServiceImpl struct {
	userRepo user.Repository
	engine   UserSyncer
	archiver reconciliation.EventArchiver
	logger   *slog.Logger
}

// NewSyncService creates a new sync service. archiver may be nil; webhook
// payloads are then not archived.
func NewSyncService(logger *slog.Logger, userRepo user.Repository, engine UserSyncer, archiver reconciliation.EventArchiver) SyncService {
	return &SyncServiceImpl{
		userRepo: userRepo,
		engine:   engine,
		archiver: archiver,
		logger:   logger,
	}
}

// SyncUser runs a full reconciliation pass for one user
func (s *SyncServiceImpl) SyncUser(ctx context.Context, userID uuid.UUID) (*reconciliation.Report, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	report, err := s.engine.SyncUser(ctx, u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User sync finished",
		"user_id", userID.String(),
		"created", report.EntriesCreated,
		"updated", report.EntriesUpdated,
		"failures", report.Failures,
	)

	return report, nil
}

// HandleProviderEvent archives a webhook delivery verbatim and syncs the
// affected user. The webhook is only a nudge; the sync pulls the full event
// streams, so a lost or duplicated delivery never loses data.
func (s *SyncServiceImpl) HandleProviderEvent(ctx context.Context, eventID, customerID string, payload json.RawMessage) (*reconciliation.Report, error) {
	u, err := s.userRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve webhook customer: %w", err)
	}

	if s.archiver != nil {
		if eventID == "" {
			eventID = uuid.New().String()
		}
		record := &reconciliation.ArchiveRecord{
			Source:     "webhook",
			EventID:    eventID,
			UserID:     u.ID,
			Payload:    payload,
			ReceivedAt: time.Now().UTC(),
		}
		if err := s.archiver.Archive(ctx, record); err != nil {
			// Archive failures never block the sync itself
			s.logger.Error("Failed to archive webhook payload",
				"event_id", eventID,
				"customer_id", customerID,
				"error", err,
			)
		}
	}

	return s.engine.SyncUser(ctx, u)
}
