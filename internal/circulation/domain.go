// internal/circulation/domain.go
package circulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// LoanPeriod is the fixed time a book may be kept before it is overdue.
	LoanPeriod = 14 * 24 * time.Hour
	// DailyPenalty is charged per whole day past the due date, in dollars.
	DailyPenalty = 1.0

	NotificationSubject = "Library Notification"

	onTimeMessage = "You have returned the book on time."
)

// Transaction is a single loan of a book to a user. It is open while ReturnDate is nil.
type Transaction struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user" db:"user_id"`
	BookID       uuid.UUID  `json:"book" db:"book_id"`
	CheckoutDate time.Time  `json:"checkout_date" db:"checkout_date"`
	ReturnDate   *time.Time `json:"return_date" db:"return_date"`
}

func (t *Transaction) IsOpen() bool {
	return t.ReturnDate == nil
}

func (t *Transaction) DueDate() time.Time {
	return t.CheckoutDate.Add(LoanPeriod)
}

// IsOverdue reports whether the loan is still open and past its due date at now.
func (t *Transaction) IsOverdue(now time.Time) bool {
	return t.IsOpen() && t.CheckoutDate.Before(OverdueCutoff(now))
}

// OverdueCutoff is the checkout instant before which a loan is overdue at now.
// checkout < now-LoanPeriod holds exactly when now > checkout+LoanPeriod.
func OverdueCutoff(now time.Time) time.Time {
	return now.Add(-LoanPeriod)
}

// Assessment is the outcome of returning a loan at a given instant.
type Assessment struct {
	Overdue     bool    `json:"overdue"`
	OverdueDays int     `json:"overdue_days"`
	Penalty     float64 `json:"penalty"`
}

// Assess evaluates a loan checked out at checkoutDate and returned at returnedAt.
// Overdue days are whole days past the due date, truncated.
func Assess(checkoutDate, returnedAt time.Time) Assessment {
	due := checkoutDate.Add(LoanPeriod)
	if !returnedAt.After(due) {
		return Assessment{}
	}
	days := int(returnedAt.Sub(due) / (24 * time.Hour))
	return Assessment{
		Overdue:     true,
		OverdueDays: days,
		Penalty:     float64(days) * DailyPenalty,
	}
}

// Message is the notification text sent to the user for this assessment.
func (a Assessment) Message() string {
	if !a.Overdue {
		return onTimeMessage
	}
	return fmt.Sprintf("You have returned an overdue book. Your penalty is $%.1f.", a.Penalty)
}

// Receipt describes a completed return.
type Receipt struct {
	Transaction *Transaction
	Assessment
}

const aggregateType = "transaction"

const (
	EventTransactionOpened = "TransactionOpened"
	EventTransactionClosed = "TransactionClosed"
)

// TransactionOpenedEvent is recorded when a book is checked out.
type TransactionOpenedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	BookID        uuid.UUID `json:"book_id"`
	CheckoutDate  time.Time `json:"checkout_date"`
	DueDate       time.Time `json:"due_date"`
}

// TransactionClosedEvent is recorded when a book is returned.
type TransactionClosedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	BookID        uuid.UUID `json:"book_id"`
	ReturnDate    time.Time `json:"return_date"`
}

func openedEvent(t *Transaction) TransactionOpenedEvent {
	return TransactionOpenedEvent{
		TransactionID: t.ID,
		UserID:        t.UserID,
		BookID:        t.BookID,
		CheckoutDate:  t.CheckoutDate,
		DueDate:       t.DueDate(),
	}
}

func closedEvent(t *Transaction) TransactionClosedEvent {
	return TransactionClosedEvent{
		TransactionID: t.ID,
		UserID:        t.UserID,
		BookID:        t.BookID,
		ReturnDate:    *t.ReturnDate,
	}
}
