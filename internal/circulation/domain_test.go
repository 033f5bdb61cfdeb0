package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var checkoutAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestAssess(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name        string
		returnedAt  time.Time
		overdue     bool
		overdueDays int
		message     string
	}{
		{
			name:       "returned after ten days",
			returnedAt: checkoutAt.Add(10 * day),
			message:    "You have returned the book on time.",
		},
		{
			name:       "returned exactly at the due date",
			returnedAt: checkoutAt.Add(14 * day),
			message:    "You have returned the book on time.",
		},
		{
			name:       "returned one nanosecond late",
			returnedAt: checkoutAt.Add(14*day + time.Nanosecond),
			overdue:    true,
			message:    "You have returned an overdue book. Your penalty is $0.0.",
		},
		{
			name:        "returned after sixteen days",
			returnedAt:  checkoutAt.Add(16 * day),
			overdue:     true,
			overdueDays: 2,
			message:     "You have returned an overdue book. Your penalty is $2.0.",
		},
		{
			name:        "partial days are truncated",
			returnedAt:  checkoutAt.Add(16*day + 23*time.Hour),
			overdue:     true,
			overdueDays: 2,
			message:     "You have returned an overdue book. Your penalty is $2.0.",
		},
		{
			name:        "returned after a year",
			returnedAt:  checkoutAt.Add(365 * day),
			overdue:     true,
			overdueDays: 351,
			message:     "You have returned an overdue book. Your penalty is $351.0.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(checkoutAt, tt.returnedAt)
			assert.Equal(t, tt.overdue, a.Overdue)
			assert.Equal(t, tt.overdueDays, a.OverdueDays)
			assert.Equal(t, float64(tt.overdueDays)*DailyPenalty, a.Penalty)
			assert.Equal(t, tt.message, a.Message())
		})
	}
}

func TestTransactionIsOverdue(t *testing.T) {
	txn := &Transaction{CheckoutDate: checkoutAt}

	assert.Equal(t, checkoutAt.Add(14*24*time.Hour), txn.DueDate())
	assert.False(t, txn.IsOverdue(txn.DueDate()))
	assert.True(t, txn.IsOverdue(txn.DueDate().Add(time.Second)))

	returned := checkoutAt.Add(30 * 24 * time.Hour)
	txn.ReturnDate = &returned
	assert.False(t, txn.IsOverdue(returned.Add(time.Hour)), "closed loans are never overdue")
}

func TestAssessmentAgreesWithOverdueCutoff(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		checkout := checkoutAt.Add(time.Duration(rapid.Int64Range(-1e15, 1e15).Draw(t, "checkout")))
		elapsed := time.Duration(rapid.Int64Range(0, int64(400*24*time.Hour)).Draw(t, "elapsed"))
		now := checkout.Add(elapsed)

		a := Assess(checkout, now)
		txn := &Transaction{CheckoutDate: checkout}

		if a.Overdue != txn.IsOverdue(now) {
			t.Fatalf("Assess overdue=%v but IsOverdue=%v for elapsed %s", a.Overdue, txn.IsOverdue(now), elapsed)
		}
		if a.OverdueDays < 0 {
			t.Fatalf("negative overdue days %d", a.OverdueDays)
		}
		if !a.Overdue && a.OverdueDays != 0 {
			t.Fatalf("on-time return charged %d days", a.OverdueDays)
		}
		if a.Penalty != float64(a.OverdueDays)*DailyPenalty {
			t.Fatalf("penalty %v does not match %d days", a.Penalty, a.OverdueDays)
		}
	})
}
