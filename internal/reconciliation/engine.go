// Package reconciliation folds asynchronous, eventually-consistent provider
// events into the internal transaction ledger. Incoming events are
// deduplicated against the ledger by multiple candidate keys, statuses only
// ever move forward, and reprocessing the same event stream is a no-op.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/easner-transaction-sync/internal/domain/ledger"
	"github.com/easner-transaction-sync/internal/domain/provider"
	"github.com/easner-transaction-sync/internal/domain/user"
	"github.com/easner-transaction-sync/internal/txid"
	"github.com/google/uuid"
)

const (
	// fuzzyMatchWindow bounds the timestamp distance for the fallback
	// amount+currency dedup lookup
	fuzzyMatchWindow = 5 * time.Second

	// maxInsertAttempts bounds transaction id regeneration on collision
	maxInsertAttempts = 5
)

// MessagePublisher publishes status-change events for the notifier.
// Publishing is fire-and-forget: failures are logged and never block a
// ledger update.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// EventArchiver persists verbatim provider payloads for audit
type EventArchiver interface {
	Archive(ctx context.Context, record *ArchiveRecord) error
}

// ArchiveRecord is one verbatim provider payload
type ArchiveRecord struct {
	Source     string          `bson:"source" json:"source"` // webhook, activity, drain or transfer
	EventID    string          `bson:"event_id" json:"event_id"`
	UserID     uuid.UUID       `bson:"user_id" json:"user_id"`
	Payload    json.RawMessage `bson:"payload" json:"payload"`
	ReceivedAt time.Time       `bson:"received_at" json:"received_at"`
}

// Report summarizes one sync invocation
type Report struct {
	ActivityEvents     int `json:"activity_events"`
	DrainsProcessed    int `json:"drains_processed"`
	TransfersProcessed int `json:"transfers_processed"`
	EntriesCreated     int `json:"entries_created"`
	EntriesUpdated     int `json:"entries_updated"`
	Skipped            int `json:"skipped"`
	Failures           int `json:"failures"`
}

func (r *Report) merge(other *Report) {
	r.ActivityEvents += other.ActivityEvents
	r.DrainsProcessed += other.DrainsProcessed
	r.TransfersProcessed += other.TransfersProcessed
	r.EntriesCreated += other.EntriesCreated
	r.EntriesUpdated += other.EntriesUpdated
	r.Skipped += other.Skipped
	r.Failures += other.Failures
}

// Engine reconciles provider event streams against the ledger
type Engine struct {
	ledgerRepo ledger.Repository
	userRepo   user.Repository
	gateway    provider.Gateway
	archiver   EventArchiver
	publisher  MessagePublisher
	locks      *KeyedLock
	logger     *slog.Logger

	// Injected for tests
	now   func() time.Time
	sleep func(time.Duration)
	genID func() string
}

// NewEngine creates a reconciliation engine. archiver and publisher may be
// nil; archiving and notification are then skipped.
func NewEngine(
	logger *slog.Logger,
	ledgerRepo ledger.Repository,
	userRepo user.Repository,
	gw provider.Gateway,
	archiver EventArchiver,
	publisher MessagePublisher,
) *Engine {
	return &Engine{
		ledgerRepo: ledgerRepo,
		userRepo:   userRepo,
		gateway:    gw,
		archiver:   archiver,
		publisher:  publisher,
		locks:      NewKeyedLock(),
		logger:     logger,
		now:        time.Now,
		sleep:      time.Sleep,
		genID:      txid.Generate,
	}
}

// SyncUser pulls every relevant event stream for the user and folds it into
// the ledger. At most one sync per user runs at a time; concurrent callers
// receive the in-flight result.
func (e *Engine) SyncUser(ctx context.Context, u *user.User) (*Report, error) {
	return e.locks.Do(u.ID.String(), func() (*Report, error) {
		return e.syncLocked(ctx, u)
	})
}

// SyncDeposits folds only the virtual-account activity stream
func (e *Engine) SyncDeposits(ctx context.Context, u *user.User) (*Report, error) {
	return e.syncStream(ctx, u, e.syncActivity)
}

// SyncLiquidationAddresses folds only the liquidation-address drain stream
func (e *Engine) SyncLiquidationAddresses(ctx context.Context, u *user.User) (*Report, error) {
	return e.syncStream(ctx, u, e.syncDrains)
}

// SyncTransferStatuses refreshes only the outbound transfer stream
func (e *Engine) SyncTransferStatuses(ctx context.Context, u *user.User) (*Report, error) {
	return e.syncStream(ctx, u, e.syncTransfers)
}

func (e *Engine) syncStream(ctx context.Context, u *user.User, stream func(context.Context, *slog.Logger, *user.User, *seenSet, *Report)) (*Report, error) {
	return e.locks.Do(u.ID.String(), func() (*Report, error) {
		if u.BridgeCustomerID == "" {
			return nil, user.ErrNoCustomerID{UserID: u.ID}
		}
		logger := e.logger.With("user_id", u.ID.String(), "customer_id", u.BridgeCustomerID)
		report := &Report{}
		stream(ctx, logger, u, newSeenSet(), report)
		return report, nil
	})
}

func (e *Engine) syncLocked(ctx context.Context, u *user.User) (*Report, error) {
	if u.BridgeCustomerID == "" {
		return nil, user.ErrNoCustomerID{UserID: u.ID}
	}

	logger := e.logger.With("user_id", u.ID.String(), "customer_id", u.BridgeCustomerID)
	logger.Info("Starting transaction sync")

	report := &Report{}
	seen := newSeenSet()

	// The three streams are independent: a failed prerequisite lookup or
	// provider call fails that stream only, the others still run.
	e.syncActivity(ctx, logger, u, seen, report)
	e.syncDrains(ctx, logger, u, seen, report)
	e.syncTransfers(ctx, logger, u, seen, report)

	logger.Info("Transaction sync finished",
		"activity_events", report.ActivityEvents,
		"drains", report.DrainsProcessed,
		"transfers", report.TransfersProcessed,
		"created", report.EntriesCreated,
		"updated", report.EntriesUpdated,
		"skipped", report.Skipped,
		"failures", report.Failures,
	)
	return report, nil
}

// syncActivity folds virtual-account activity into the receive side of the ledger
func (e *Engine) syncActivity(ctx context.Context, logger *slog.Logger, u *user.User, seen *seenSet, report *Report) {
	accounts, err := e.userRepo.ListVirtualAccounts(ctx, u.ID)
	if err != nil {
		logger.Error("Cannot sync virtual account activity: failed to list virtual accounts", "error", err)
		report.Failures++
		return
	}
	if len(accounts) == 0 {
		logger.Info("User has no virtual accounts, skipping activity sync")
		return
	}

	for _, account := range accounts {
		events, err := e.gateway.ListActivity(ctx, u.BridgeCustomerID, account.BridgeAccountID)
		if err != nil {
			logger.Error("Failed to list virtual account activity",
				"account_id", account.BridgeAccountID,
				"error", err,
			)
			report.Failures++
			continue
		}

		// Deposits land in the virtual account whose history listed them
		destination := &provider.Endpoint{
			Kind:     "virtual_account",
			ID:       account.BridgeAccountID,
			BankName: account.BankName,
			Last4:    account.AccountNumberTail,
		}

		// Oldest first: replay in provider order regardless of API ordering
		sort.Slice(events, func(i, j int) bool {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		})

		for i := range events {
			report.ActivityEvents++
			events[i].Destination = destination
			e.applyEvent(ctx, logger, u, "activity", &events[i], report, seen)
		}
	}
}

// syncDrains folds liquidation-address drain history into the receive side
func (e *Engine) syncDrains(ctx context.Context, logger *slog.Logger, u *user.User, seen *seenSet, report *Report) {
	addresses, err := e.userRepo.ListLiquidationAddresses(ctx, u.ID)
	if err != nil {
		logger.Error("Cannot sync drains: failed to list liquidation addresses", "error", err)
		report.Failures++
		return
	}
	if len(addresses) == 0 {
		logger.Info("User has no liquidation addresses, skipping drain sync")
		return
	}

	for _, address := range addresses {
		drains, err := e.gateway.ListDrains(ctx, u.BridgeCustomerID, address.BridgeAddressID)
		if err != nil {
			logger.Error("Failed to list liquidation address drains",
				"liquidation_address_id", address.BridgeAddressID,
				"error", err,
			)
			report.Failures++
			continue
		}

		sort.Slice(drains, func(i, j int) bool {
			return drains[i].CreatedAt.Before(drains[j].CreatedAt)
		})

		for i := range drains {
			report.DrainsProcessed++
			event := drainToEvent(&drains[i], address)
			e.applyEvent(ctx, logger, u, "drain", event, report, seen)
		}
	}
}

// drainToEvent converts a drain record into the common event shape so both
// receive-side streams share one fold. The drained liquidation address is
// the source side of the transfer.
func drainToEvent(d *provider.Drain, address *user.LiquidationAddress) *provider.Event {
	receipt := d.Receipt
	if receipt.Empty() && d.DestinationTxHash != "" {
		receipt = &provider.Receipt{DestinationTxHash: d.DestinationTxHash}
	}
	return &provider.Event{
		ID:        d.ID,
		Kind:      provider.EventKindTransfer,
		Status:    d.Status,
		Amount:    d.Amount,
		Currency:  d.Currency,
		DepositID: d.DepositID,
		CreatedAt: d.CreatedAt,
		Source: &provider.Endpoint{
			Kind:    "liquidation_address",
			ID:      address.BridgeAddressID,
			Chain:   address.Chain,
			Address: address.Address,
		},
		Receipt: receipt,
		Raw:     d.Raw,
	}
}

// applyEvent folds one receive-side event into the ledger
func (e *Engine) applyEvent(ctx context.Context, logger *slog.Logger, u *user.User, source string, event *provider.Event, report *Report, seen *seenSet) {
	// Non-transfer activity never creates or updates ledger entries
	if event.Kind != provider.EventKindTransfer {
		report.Skipped++
		return
	}

	// In-run dedup: providers return overlapping pages
	if seen.hasEvent(event.ID) {
		report.Skipped++
		return
	}
	seen.markEvent(event.ID)

	e.archiveRaw(ctx, logger, source, event.ID, u.ID, event.Raw)

	status := ledger.Status(event.Status)

	existing, err := e.findExisting(ctx, u.ID, ledger.TransferTypeReceive, event)
	if err != nil {
		logger.Error("Dedup lookup failed", "event_id", event.ID, "error", err)
		report.Failures++
		return
	}

	if existing == nil {
		// Intermediate statuses are consumed without creating entries; the
		// entry appears once a tracked milestone with a positive amount shows up
		if !status.IsMilestone() || !event.Amount.IsPositive() {
			report.Skipped++
			return
		}

		// Close the race where two events with the same deposit id but
		// different event ids both missed the initial lookup. The in-run
		// grouping key set catches the same pattern within one batch.
		if event.DepositID != "" {
			existing, err = e.ledgerRepo.FindByGroupingKey(ctx, u.ID, ledger.TransferTypeReceive, event.DepositID)
			if err != nil {
				logger.Error("Pre-insert grouping key re-check failed", "event_id", event.ID, "error", err)
				report.Failures++
				return
			}
			// An entry for this deposit was already created in this run;
			// if the store cannot see it yet, do not insert a second one
			if existing == nil && seen.hasGroup(event.DepositID) {
				report.Skipped++
				return
			}
		}

		if existing == nil {
			created, fallback, err := e.createEntry(ctx, logger, u, ledger.TransferTypeReceive, event, status)
			if err != nil {
				logger.Error("Failed to create ledger entry", "event_id", event.ID, "error", err)
				report.Failures++
				return
			}
			if created != nil {
				report.EntriesCreated++
				if event.DepositID != "" {
					seen.markGroup(event.DepositID)
				}
				e.publishChange(ctx, logger, u, created, "")
				return
			}
			// A concurrent process inserted the row first; update it instead
			existing = fallback
		}
	}

	e.applyUpdate(ctx, logger, u, existing, event.ID, status, event.Receipt, event.Raw, report)
}

// findExisting resolves the dedup keys in priority order:
// grouping key, then external reference, then (only without a grouping key)
// the fuzzy amount+currency+time window
func (e *Engine) findExisting(ctx context.Context, userID uuid.UUID, transferType ledger.TransferType, event *provider.Event) (*ledger.Entry, error) {
	if event.DepositID != "" {
		entry, err := e.ledgerRepo.FindByGroupingKey(ctx, userID, transferType, event.DepositID)
		if err != nil || entry != nil {
			return entry, err
		}
	}

	entry, err := e.ledgerRepo.FindByExternalReference(ctx, userID, transferType, event.ID)
	if err != nil || entry != nil {
		return entry, err
	}

	if event.DepositID == "" {
		return e.ledgerRepo.FindFuzzy(ctx, userID, transferType, event.Amount, event.Currency, event.CreatedAt, fuzzyMatchWindow)
	}
	return nil, nil
}

// createEntry inserts a new ledger entry with a collision-checked
// transaction id. On a duplicate-transfer conflict it returns the existing
// row as fallback instead of an error.
func (e *Engine) createEntry(ctx context.Context, logger *slog.Logger, u *user.User, transferType ledger.TransferType, event *provider.Event, status ledger.Status) (created, fallback *ledger.Entry, err error) {
	now := e.now()
	entry := &ledger.Entry{
		ID:                uuid.New(),
		UserID:            u.ID,
		TransferType:      transferType,
		Direction:         ledger.DirectionFor(transferType),
		Amount:            event.Amount,
		Currency:          event.Currency,
		Status:            status,
		GroupingKey:       event.DepositID,
		ExternalReference: event.ID,
		Source:            endpointFromProvider(event.Source),
		Destination:       endpointFromProvider(event.Destination),
		Receipt:           receiptFromProvider(event.Receipt),
		RawMetadata:       event.Raw,
		CreatedAt:         now,
		UpdatedAt:         now,
		ProviderCreatedAt: event.CreatedAt,
	}
	if status == ledger.StatusPaymentProcessed {
		completedAt := now
		entry.CompletedAt = &completedAt
	}

	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		entry.TransactionID = e.genID()

		err = e.ledgerRepo.Create(ctx, entry)
		if err == nil {
			return entry, nil, nil
		}

		var dupID ledger.ErrDuplicateTransactionID
		if errors.As(err, &dupID) {
			logger.Warn("Transaction id collision, regenerating",
				"transaction_id", entry.TransactionID,
				"attempt", attempt,
			)
			e.sleep(time.Duration(25+rand.IntN(75)) * time.Millisecond)
			continue
		}

		var dupEntry ledger.ErrDuplicateEntry
		if errors.As(err, &dupEntry) {
			// Lost the insert race; hand the existing row back for update
			existing, lookupErr := e.findExisting(ctx, u.ID, transferType, event)
			if lookupErr != nil {
				return nil, nil, fmt.Errorf("failed to recover from duplicate entry conflict: %w", lookupErr)
			}
			if existing == nil {
				return nil, nil, fmt.Errorf("duplicate entry conflict but no row found for event %s: %w", event.ID, err)
			}
			return nil, existing, nil
		}

		return nil, nil, err
	}

	return nil, nil, fmt.Errorf("exhausted %d transaction id attempts: %w", maxInsertAttempts, err)
}

// applyUpdate merges one event into an existing entry. The update is applied
// only on forward status progress or when new settlement metadata arrived;
// receipt merges are accepted independent of status ordering.
func (e *Engine) applyUpdate(ctx context.Context, logger *slog.Logger, u *user.User, entry *ledger.Entry, eventID string, status ledger.Status, receipt *provider.Receipt, raw json.RawMessage, report *Report) {
	forward := status.IsMilestone() && status.Priority() > entry.Status.Priority()
	receiptAdds := receiptAddsMetadata(entry.Receipt, receipt)

	if !forward && !receiptAdds {
		report.Skipped++
		return
	}

	oldStatus := entry.Status
	if forward {
		entry.Status = status
		if status == ledger.StatusPaymentProcessed && entry.CompletedAt == nil {
			completedAt := e.now()
			entry.CompletedAt = &completedAt
		}
	}
	if receiptAdds {
		entry.Receipt = mergeReceipt(entry.Receipt, receipt)
	}
	// Track the most recent known event id for this transfer
	entry.ExternalReference = eventID
	if len(raw) > 0 {
		entry.RawMetadata = raw
	}
	entry.UpdatedAt = e.now()

	if err := e.ledgerRepo.Update(ctx, entry); err != nil {
		logger.Error("Failed to update ledger entry",
			"transaction_id", entry.TransactionID,
			"event_id", eventID,
			"error", err,
		)
		report.Failures++
		return
	}
	report.EntriesUpdated++

	if forward {
		e.publishChange(ctx, logger, u, entry, oldStatus)
	}
}

// syncTransfers folds outbound transfers into the send side of the ledger.
// Transfers are always uniquely identified at creation, so dedup matches on
// the transfer's own id only.
func (e *Engine) syncTransfers(ctx context.Context, logger *slog.Logger, u *user.User, seen *seenSet, report *Report) {
	transfers, err := e.gateway.ListTransfers(ctx, u.BridgeCustomerID)
	if err != nil {
		logger.Error("Failed to list transfers", "error", err)
		report.Failures++
		return
	}

	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt.Before(transfers[j].CreatedAt)
	})

	for i := range transfers {
		report.TransfersProcessed++
		transfer := &transfers[i]

		if seen.hasEvent(transfer.ID) {
			report.Skipped++
			continue
		}
		seen.markEvent(transfer.ID)

		e.archiveRaw(ctx, logger, "transfer", transfer.ID, u.ID, transfer.Raw)

		status := ledger.Status(transfer.Status)

		existing, err := e.ledgerRepo.FindByExternalReference(ctx, u.ID, ledger.TransferTypeSend, transfer.ID)
		if err != nil {
			logger.Error("Transfer lookup failed", "transfer_id", transfer.ID, "error", err)
			report.Failures++
			continue
		}

		if existing == nil {
			if !status.IsMilestone() || !transfer.Amount.IsPositive() {
				report.Skipped++
				continue
			}
			event := &provider.Event{
				ID:          transfer.ID,
				Kind:        provider.EventKindTransfer,
				Status:      transfer.Status,
				Amount:      transfer.Amount,
				Currency:    transfer.Currency,
				CreatedAt:   transfer.CreatedAt,
				Destination: transfer.Destination,
				Receipt:     transfer.Receipt,
				Raw:         transfer.Raw,
			}
			created, fallback, err := e.createEntry(ctx, logger, u, ledger.TransferTypeSend, event, status)
			if err != nil {
				logger.Error("Failed to create ledger entry for transfer", "transfer_id", transfer.ID, "error", err)
				report.Failures++
				continue
			}
			if created != nil {
				report.EntriesCreated++
				e.publishChange(ctx, logger, u, created, "")
				continue
			}
			existing = fallback
		}

		e.applyUpdate(ctx, logger, u, existing, transfer.ID, status, transfer.Receipt, transfer.Raw, report)
	}
}

// archiveRaw stores the verbatim provider payload; archive failures are
// logged and never fail the sync
func (e *Engine) archiveRaw(ctx context.Context, logger *slog.Logger, source, eventID string, userID uuid.UUID, payload json.RawMessage) {
	if e.archiver == nil || len(payload) == 0 {
		return
	}
	record := &ArchiveRecord{
		Source:     source,
		EventID:    eventID,
		UserID:     userID,
		Payload:    payload,
		ReceivedAt: e.now(),
	}
	if err := e.archiver.Archive(ctx, record); err != nil {
		logger.Warn("Failed to archive provider payload", "event_id", eventID, "error", err)
	}
}

// publishChange emits a status-change event; failures are logged, never
// propagated into the sync result
func (e *Engine) publishChange(ctx context.Context, logger *slog.Logger, u *user.User, entry *ledger.Entry, oldStatus ledger.Status) {
	if e.publisher == nil {
		return
	}
	change := &ledger.StatusChange{
		TransactionID: entry.TransactionID,
		UserID:        u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		TransferType:  entry.TransferType,
		OldStatus:     oldStatus,
		NewStatus:     entry.Status,
		Amount:        entry.Amount,
		Currency:      entry.Currency,
		CompletedAt:   entry.CompletedAt,
		OccurredAt:    e.now(),
	}
	if err := e.publisher.Publish(ctx, entry.TransactionID, change); err != nil {
		logger.Error("Failed to publish status change event",
			"transaction_id", entry.TransactionID,
			"new_status", string(entry.Status),
			"error", err,
		)
	}
}

func endpointFromProvider(p *provider.Endpoint) *ledger.Endpoint {
	if p == nil {
		return nil
	}
	return &ledger.Endpoint{
		Kind:      p.Kind,
		ID:        p.ID,
		BankName:  p.BankName,
		Last4:     p.Last4,
		Chain:     p.Chain,
		Address:   p.Address,
		Reference: p.Reference,
	}
}

func receiptFromProvider(r *provider.Receipt) *ledger.Receipt {
	if r.Empty() {
		return nil
	}
	return &ledger.Receipt{
		FinalAmount:       r.FinalAmount,
		DestinationTxHash: r.DestinationTxHash,
		TraceNumber:       r.TraceNumber,
		IMAD:              r.IMAD,
	}
}

// receiptAddsMetadata reports whether incoming carries settlement metadata
// the stored receipt does not have yet
func receiptAddsMetadata(stored *ledger.Receipt, incoming *provider.Receipt) bool {
	if incoming.Empty() {
		return false
	}
	if stored == nil {
		return true
	}
	if incoming.FinalAmount != nil && (stored.FinalAmount == nil || !stored.FinalAmount.Equal(*incoming.FinalAmount)) {
		return true
	}
	if incoming.DestinationTxHash != "" && incoming.DestinationTxHash != stored.DestinationTxHash {
		return true
	}
	if incoming.TraceNumber != "" && incoming.TraceNumber != stored.TraceNumber {
		return true
	}
	if incoming.IMAD != "" && incoming.IMAD != stored.IMAD {
		return true
	}
	return false
}

// mergeReceipt overlays incoming non-empty fields onto the stored receipt
func mergeReceipt(stored *ledger.Receipt, incoming *provider.Receipt) *ledger.Receipt {
	merged := &ledger.Receipt{}
	if stored != nil {
		*merged = *stored
	}
	if incoming == nil {
		return merged
	}
	if incoming.FinalAmount != nil {
		merged.FinalAmount = incoming.FinalAmount
	}
	if incoming.DestinationTxHash != "" {
		merged.DestinationTxHash = incoming.DestinationTxHash
	}
	if incoming.TraceNumber != "" {
		merged.TraceNumber = incoming.TraceNumber
	}
	if incoming.IMAD != "" {
		merged.IMAD = incoming.IMAD
	}
	return merged
}

// seenSet tracks event ids and grouping keys already handled in one run
type seenSet struct {
	events map[string]struct{}
	groups map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{
		events: make(map[string]struct{}),
		groups: make(map[string]struct{}),
	}
}

func (s *seenSet) markEvent(id string) { s.events[id] = struct{}{} }
func (s *seenSet) markGroup(key string) { s.groups[key] = struct{}{} }

func (s *seenSet) hasEvent(id string) bool {
	_, ok := s.events[id]
	return ok
}

func (s *seenSet) hasGroup(key string) bool {
	_, ok := s.groups[key]
	return ok
}
