package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusPriorityOrdering(t *testing.T) {
	assert.Less(t, StatusFundsReceived.Priority(), StatusPaymentProcessed.Priority())
	assert.Less(t, StatusFundsScheduled.Priority(), StatusFundsReceived.Priority())
	assert.Less(t, StatusInReview.Priority(), StatusFundsReceived.Priority())

	// Unknown statuses never displace a recorded one
	assert.Equal(t, 0, Status("something_new").Priority())
}

func TestStatusIsMilestone(t *testing.T) {
	assert.True(t, StatusFundsReceived.IsMilestone())
	assert.True(t, StatusPaymentProcessed.IsMilestone())

	assert.False(t, StatusFundsScheduled.IsMilestone())
	assert.False(t, StatusPaymentSubmitted.IsMilestone())
	assert.False(t, StatusInReview.IsMilestone())
	assert.False(t, StatusRefunded.IsMilestone())
}

func TestStatusDisplay(t *testing.T) {
	assert.Equal(t, "processing", StatusFundsReceived.Display())
	assert.Equal(t, "completed", StatusPaymentProcessed.Display())
	assert.Equal(t, "in_review", StatusInReview.Display())
}

func TestDirectionFor(t *testing.T) {
	assert.Equal(t, DirectionDebit, DirectionFor(TransferTypeSend))
	assert.Equal(t, DirectionCredit, DirectionFor(TransferTypeReceive))
}

func TestReceiptEmpty(t *testing.T) {
	var r *Receipt
	assert.True(t, r.Empty())
	assert.True(t, (&Receipt{}).Empty())
	assert.False(t, (&Receipt{TraceNumber: "20240101000001"}).Empty())
}
