package handler

import (
	"errors"
	"log/slog"

	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/easner-transaction-sync/internal/syncservice/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler handles HTTP requests for manual reconciliation runs
type SyncHandler struct {
	syncService service.SyncService
	logger      *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, syncService service.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// SyncUser triggers a full reconciliation pass for one user and returns the
// run report. Users that have not completed provider onboarding get a 409.
func (h *SyncHandler) SyncUser(c *gin.Context) {
	idParam := c.Param("id")
	userID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	report, err := h.syncService.SyncUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			RespondNotFound(c, "User not found")
			return
		}
		if errors.Is(err, user.ErrNoCustomerID{}) {
			RespondConflict(c, "User has not completed provider onboarding")
			return
		}
		h.logger.Error("Failed to sync user", "user_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, report)
}
