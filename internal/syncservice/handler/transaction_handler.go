package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/easner-transaction-sync/internal/domain/ledger"
	"github.com/easner-transaction-sync/internal/syncservice/service"
	"github.com/easner-transaction-sync/internal/txid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles HTTP requests for ledger queries
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// GetByTransactionID retrieves a ledger entry by its human-facing id,
// returns 404 if not found
func (h *TransactionHandler) GetByTransactionID(c *gin.Context) {
	idParam := c.Param("txid")
	if !txid.Valid(idParam) {
		h.logger.Error("Invalid transaction ID", "transaction_id", idParam)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	entry, err := h.transactionService.GetByTransactionID(c.Request.Context(), idParam)
	if err != nil {
		h.logger.Error("Failed to get transaction", "transaction_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if entry == nil {
		RespondNotFound(c, "Transaction not found")
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// ListByUser retrieves paginated ledger history for a user
func (h *TransactionHandler) ListByUser(c *gin.Context) {
	idParam := c.Param("id")
	userID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "user_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.transactionService.ListByUser(
		c.Request.Context(),
		userID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to list transactions", "user_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	var transactions []TransactionResponse
	for _, entry := range entries {
		transactions = append(transactions, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, pagination.Page, pagination.PerPage, int(total))
}

// mapEntryToResponse maps a ledger entry to a transaction response DTO.
// Currency is stored lowercase and presented uppercase.
func mapEntryToResponse(entry *ledger.Entry) TransactionResponse {
	response := TransactionResponse{
		TransactionID:     entry.TransactionID,
		UserID:            entry.UserID.String(),
		TransferType:      string(entry.TransferType),
		Direction:         string(entry.Direction),
		Amount:            entry.Amount.String(),
		Currency:          strings.ToUpper(entry.Currency),
		Status:            string(entry.Status),
		StatusDisplay:     entry.Status.Display(),
		ExternalReference: entry.ExternalReference,
		CreatedAt:         entry.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         entry.UpdatedAt.Format(time.RFC3339),
	}

	if entry.CompletedAt != nil {
		response.CompletedAt = entry.CompletedAt.Format(time.RFC3339)
	}

	return response
}
