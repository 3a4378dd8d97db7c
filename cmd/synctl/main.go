// Command synctl is the operator entry point for reconciliation runs and
// one-time maintenance tasks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/easner-transaction-sync/internal/data/mongo"
	"github.com/easner-transaction-sync/internal/data/postgres"
	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/easner-transaction-sync/internal/gateway/bridge"
	"github.com/easner-transaction-sync/internal/logger"
	"github.com/easner-transaction-sync/internal/migration"
	"github.com/easner-transaction-sync/internal/platform/messaging/producers"
	"github.com/easner-transaction-sync/internal/platform/persistence"
	"github.com/easner-transaction-sync/internal/reconciliation"
)

const usage = `Usage: synctl <command> [args]

Commands:
  sync-transactions <email>           sync virtual-account deposit activity for one user
  sync-liquidation-addresses <email>  sync liquidation-address drains for one user
  sync-status <email>                 refresh outbound transfer statuses for one user
  sync-all-users                      run a full sync sweep over every provisioned user
  show-events <email>                 print the latest archived provider payloads for one user
  migrate-transaction-ids [--dry-run] rewrite legacy-format transaction ids
`

// showEventsLimit caps how many archived payloads show-events prints
const showEventsLimit = 50

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.LoadConfig("synctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	legacyRepo := postgres.NewLegacyRepository(log, postgresDB)
	userRepo := postgres.NewUserRepository(log, postgresDB)

	// The id migration needs no provider access
	if os.Args[1] == "migrate-transaction-ids" {
		dryRun := len(os.Args) > 2 && os.Args[2] == "--dry-run"
		migrator := migration.NewTransactionIDMigrator(log, legacyRepo)
		report, err := migrator.Run(ctx, dryRun)
		if err != nil {
			log.Error("Transaction id migration failed", "error", err)
			os.Exit(1)
		}
		printReport(report)
		return
	}

	mongoDB, err := persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongoDB.Close(ctx)

	eventArchive, err := mongo.NewEventArchive(ctx, log, mongoDB.Database())
	if err != nil {
		log.Error("Failed to initialize event archive", "error", err)
		os.Exit(1)
	}

	// Reading the archive needs no provider or Kafka access either
	if os.Args[1] == "show-events" {
		showEvents(ctx, log, userRepo, eventArchive)
		return
	}

	statusProducer, err := producers.NewStatusEventProducer(ctx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize status event producer", "error", err)
		os.Exit(1)
	}
	defer statusProducer.Close()

	bridgeClient := bridge.NewClient(log, &cfg.Bridge)
	engine := reconciliation.NewEngine(log, ledgerRepo, userRepo, bridgeClient, eventArchive, statusProducer)

	switch os.Args[1] {
	case "sync-transactions":
		runUserSync(ctx, log, userRepo, engine.SyncDeposits)
	case "sync-liquidation-addresses":
		runUserSync(ctx, log, userRepo, engine.SyncLiquidationAddresses)
	case "sync-status":
		runUserSync(ctx, log, userRepo, engine.SyncTransferStatuses)
	case "sync-all-users":
		bulk := reconciliation.NewBulkSyncer(log, engine, userRepo, cfg.Sync.BulkWorkers)
		report, err := bulk.SyncAll(ctx)
		if err != nil {
			log.Error("Bulk sync failed", "error", err)
			os.Exit(1)
		}
		printReport(report)
		if report.UsersFailed > 0 {
			os.Exit(1)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// showEvents resolves the user by email and prints their latest archived
// provider payloads, newest first
func showEvents(ctx context.Context, log *slog.Logger, userRepo user.Repository, archive *mongo.EventArchive) {
	if len(os.Args) < 3 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	email := os.Args[2]

	u, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("Failed to resolve user", "email", email, "error", err)
		os.Exit(1)
	}

	records, err := archive.ListByUser(ctx, u.ID, showEventsLimit)
	if err != nil {
		log.Error("Failed to list archived events", "email", email, "error", err)
		os.Exit(1)
	}

	printReport(records)
}

// runUserSync resolves the user by email and runs one engine stream for them
func runUserSync(
	ctx context.Context,
	log *slog.Logger,
	userRepo user.Repository,
	sync func(context.Context, *user.User) (*reconciliation.Report, error),
) {
	if len(os.Args) < 3 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	email := os.Args[2]

	u, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("Failed to resolve user", "email", email, "error", err)
		os.Exit(1)
	}

	report, err := sync(ctx, u)
	if err != nil {
		log.Error("Sync failed", "email", email, "error", err)
		os.Exit(1)
	}

	printReport(report)
	if report.Failures > 0 {
		os.Exit(1)
	}
}

func printReport(report interface{}) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
