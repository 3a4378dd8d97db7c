package syncservice

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/easner-transaction-sync/internal/syncservice/handler"
	"github.com/easner-transaction-sync/internal/syncservice/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	syncHandler *handler.SyncHandler,
	transactionHandler *handler.TransactionHandler,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Provider webhook ingest
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/bridge", webhookHandler.HandleBridgeEvent)
		}

		// User operations
		users := v1.Group("/users")
		{
			users.POST("/:id/sync", syncHandler.SyncUser)
			users.GET("/:id/transactions", transactionHandler.ListByUser)
		}

		// Ledger queries
		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:txid", transactionHandler.GetByTransactionID)
		}

		// Inbound payment intake
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.Create)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
