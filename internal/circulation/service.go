// internal/circulation/service.go
package circulation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"librarydesk/internal/membership"
	"librarydesk/pkg/eventstore"
)

var (
	ErrBookNotFound        = errors.New("book not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoCopiesAvailable   = errors.New("no copies available")
	ErrLoanLimitReached    = errors.New("loan limit reached")
)

// Service defines the interface for the circulation service.
type Service interface {
	Checkout(ctx context.Context, userID, bookID uuid.UUID) (*Transaction, error)
	Return(ctx context.Context, userID, transactionID uuid.UUID) (*Receipt, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*Transaction, error)
	ListOverdueMine(ctx context.Context, userID uuid.UUID) ([]*Transaction, error)
	History(ctx context.Context, userID, transactionID uuid.UUID) ([]eventstore.Event, error)
}

// Store persists transactions together with the inventory counter of their books.
// Open and Close are each a single atomic unit of work.
type Store interface {
	// Open decrements the book's copies and records txn. It fails with ErrBookNotFound,
	// ErrNoCopiesAvailable or, when maxOpen > 0 and the user already holds maxOpen open
	// transactions, ErrLoanLimitReached; nothing is written on failure.
	Open(ctx context.Context, txn *Transaction, maxOpen int) error
	// Close sets the return date of an open transaction owned by userID and increments the
	// book's copies. Any other transaction yields ErrTransactionNotFound.
	Close(ctx context.Context, userID, transactionID uuid.UUID, at time.Time) (*Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Transaction, error)
	// ListOverdueByUser returns open transactions checked out before cutoff.
	ListOverdueByUser(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*Transaction, error)
	Events(ctx context.Context, userID, transactionID uuid.UUID) ([]eventstore.Event, error)
}

// MemberDirectory resolves the contact details of a user.
type MemberDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*membership.User, error)
}

// Notifier delivers a message to a user's email address.
type Notifier interface {
	Notify(ctx context.Context, email, subject, body string) error
}
