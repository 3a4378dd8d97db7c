package handler

import (
	"log/slog"

	"github.com/easner-transaction-sync/internal/syncservice/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles HTTP requests for inbound payment intake
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Create records an inbound virtual-account payment and runs the matcher.
// The payment is accepted even when no transaction matches; it then waits
// for manual review.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.logger.Error("Invalid user ID", "user_id", req.UserID, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		h.logger.Error("Invalid payment amount", "amount", req.Amount)
		RespondBadRequest(c, "Invalid payment amount")
		return
	}

	payment, result, err := h.paymentService.RecordPayment(c.Request.Context(), userID, amount, req.Currency, req.Reference)
	if err != nil {
		h.logger.Error("Failed to record payment", "user_id", req.UserID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, PaymentResponse{
		PaymentID:     payment.ID.String(),
		Matched:       result.Matched,
		TransactionID: result.TransactionID,
		MatchedBy:     result.MatchedBy,
	})
}
