package handler

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/easner-transaction-sync/internal/syncservice/middleware"
	"github.com/easner-transaction-sync/internal/syncservice/service"
	"github.com/gin-gonic/gin"
)

// webhookRateScope keys the limiter entries for provider webhook ingest
const webhookRateScope = "webhook"

// WebhookHandler handles provider webhook deliveries
type WebhookHandler struct {
	syncService service.SyncService
	limiter     middleware.RateLimiter
	logger      *slog.Logger
}

// NewWebhookHandler creates a new webhook handler. limiter may be nil;
// deliveries are then not rate limited.
func NewWebhookHandler(logger *slog.Logger, syncService service.SyncService, limiter middleware.RateLimiter) *WebhookHandler {
	return &WebhookHandler{
		syncService: syncService,
		limiter:     limiter,
		logger:      logger,
	}
}

// HandleBridgeEvent ingests one provider webhook delivery. The raw payload is
// archived verbatim and a sync is triggered for the affected user. Deliveries
// are rate limited per customer; a 429 tells the provider to retry later.
func (h *WebhookHandler) HandleBridgeEvent(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.logger.Error("Failed to read webhook payload", "error", err)
		RespondBadRequest(c, "Failed to read request body")
		return
	}

	var req WebhookEventRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.CustomerID == "" {
		h.logger.Error("Invalid webhook payload", "error", err)
		RespondBadRequest(c, "Invalid webhook payload")
		return
	}

	if h.limiter != nil {
		allowed, retryAfter, err := h.limiter.Allow(c.Request.Context(), webhookRateScope, req.CustomerID)
		if err != nil {
			// A broken limiter must not drop provider deliveries
			h.logger.Error("Rate limiter check failed", "customer_id", req.CustomerID, "error", err)
		} else if !allowed {
			h.logger.Warn("Webhook delivery rate limited",
				"customer_id", req.CustomerID,
				"retry_after", retryAfter,
			)
			RespondTooManyRequests(c, retryAfter)
			return
		}
	}

	report, err := h.syncService.HandleProviderEvent(c.Request.Context(), req.EventID, req.CustomerID, payload)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			// Unknown customers are acknowledged so the provider stops retrying
			h.logger.Warn("Webhook for unknown customer", "customer_id", req.CustomerID)
			RespondOK(c, gin.H{"ignored": true})
			return
		}
		h.logger.Error("Failed to process webhook", "customer_id", req.CustomerID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, report)
}
