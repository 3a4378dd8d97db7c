package ledger

// Status is the provider-native status string recorded on a ledger entry.
// Only the two milestone statuses are ever persisted; the rest exist to
// give every provider-reported status a place in the priority order.
type Status string

const (
	StatusAwaitingFunds    Status = "awaiting_funds"
	StatusFundsScheduled   Status = "funds_scheduled"
	StatusInReview         Status = "in_review"
	StatusFundsReceived    Status = "funds_received"
	StatusPaymentSubmitted Status = "payment_submitted"
	StatusPaymentProcessed Status = "payment_processed"
	StatusRefunded         Status = "refunded"
)

// statusPriority orders statuses for the forward-only progression check.
// Unknown statuses map to 0 and therefore never displace a recorded one.
var statusPriority = map[Status]int{
	StatusAwaitingFunds:    1,
	StatusFundsScheduled:   2,
	StatusInReview:         3,
	StatusFundsReceived:    4,
	StatusPaymentSubmitted: 5,
	StatusPaymentProcessed: 6,
	StatusRefunded:         3,
}

// Priority returns the status position in the forward-only order
func (s Status) Priority() int {
	return statusPriority[s]
}

// IsMilestone reports whether the status is one of the two tracked
// milestones that create or update ledger entries
func (s Status) IsMilestone() bool {
	return s == StatusFundsReceived || s == StatusPaymentProcessed
}

// Display maps a milestone status to the user-facing label
func (s Status) Display() string {
	switch s {
	case StatusFundsReceived:
		return "processing"
	case StatusPaymentProcessed:
		return "completed"
	default:
		return string(s)
	}
}
