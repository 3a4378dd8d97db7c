// Package syncservice assembles the HTTP surface of the transaction sync
// service: webhook ingest, manual sync triggers, inbound payment intake and
// ledger queries.
package syncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/easner-transaction-sync/internal/syncservice/handler"
	"github.com/easner-transaction-sync/internal/syncservice/middleware"
	"github.com/easner-transaction-sync/internal/syncservice/service"
	"github.com/gin-gonic/gin"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	syncService service.SyncService,
	transactionService service.TransactionService,
	paymentService service.PaymentService,
	limiter middleware.RateLimiter,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	syncHandler := handler.NewSyncHandler(log, syncService)
	transactionHandler := handler.NewTransactionHandler(log, transactionService)
	paymentHandler := handler.NewPaymentHandler(log, paymentService)
	webhookHandler := handler.NewWebhookHandler(log, syncService, limiter)

	setupRouter(log, httpRouter, syncHandler, transactionHandler, paymentHandler, webhookHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
