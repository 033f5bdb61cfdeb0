// internal/circulation/postgres_store.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"librarydesk/pkg/eventstore"
)

const transactionColumns = `id, user_id, book_id, checkout_date, return_date`

// PostgresStore keeps transactions, book inventory and the event log in one database
// so that every state change commits or rolls back as a whole.
type PostgresStore struct {
	db     *sqlx.DB
	events *eventstore.EventStore
}

func NewPostgresStore(db *sqlx.DB, events *eventstore.EventStore) *PostgresStore {
	return &PostgresStore{db: db, events: events}
}

func (s *PostgresStore) Open(ctx context.Context, txn *Transaction, maxOpen int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if maxOpen > 0 {
		// Concurrent checkouts by the same user queue on the user row.
		var locked uuid.UUID
		err := tx.GetContext(ctx, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, txn.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock user: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE books
		SET copies_available = copies_available - 1, updated_at = NOW()
		WHERE id = $1 AND copies_available > 0
	`, txn.BookID)
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, txn.BookID); err != nil {
			return fmt.Errorf("look up book: %w", err)
		}
		if !exists {
			return ErrBookNotFound
		}
		return ErrNoCopiesAvailable
	}

	if maxOpen > 0 {
		var open int
		err := tx.GetContext(ctx, &open, `
			SELECT COUNT(*) FROM transactions
			WHERE user_id = $1 AND return_date IS NULL
		`, txn.UserID)
		if err != nil {
			return fmt.Errorf("count open transactions: %w", err)
		}
		if open >= maxOpen {
			return ErrLoanLimitReached
		}
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (:id, :user_id, :book_id, :checkout_date, :return_date)
	`, txn)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	event, err := eventstore.NewEvent(EventTransactionOpened, openedEvent(txn))
	if err != nil {
		return err
	}
	if err := s.events.AppendTx(ctx, tx, txn.ID, aggregateType, 0, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("append %s: %w", EventTransactionOpened, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close(ctx context.Context, userID, transactionID uuid.UUID, at time.Time) (*Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The return_date guard makes a second concurrent return match nothing.
	txn := &Transaction{}
	err = tx.GetContext(ctx, txn, `
		UPDATE transactions
		SET return_date = $3
		WHERE id = $1 AND user_id = $2 AND return_date IS NULL
		RETURNING `+transactionColumns, transactionID, userID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("close transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE books
		SET copies_available = copies_available + 1, updated_at = NOW()
		WHERE id = $1
	`, txn.BookID); err != nil {
		return nil, fmt.Errorf("release copy: %w", err)
	}

	event, err := eventstore.NewEvent(EventTransactionClosed, closedEvent(txn))
	if err != nil {
		return nil, err
	}
	if err := s.events.AppendTx(ctx, tx, txn.ID, aggregateType, 1, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("append %s: %w", EventTransactionClosed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return txn, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	txns := []*Transaction{}
	err := s.db.SelectContext(ctx, &txns, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY checkout_date DESC, id
	`, userID)
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *PostgresStore) ListOverdueByUser(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]*Transaction, error) {
	txns := []*Transaction{}
	err := s.db.SelectContext(ctx, &txns, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND return_date IS NULL AND checkout_date < $2
		ORDER BY checkout_date DESC, id
	`, userID, cutoff)
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *PostgresStore) Events(ctx context.Context, userID, transactionID uuid.UUID) ([]eventstore.Event, error) {
	var owned bool
	err := s.db.GetContext(ctx, &owned, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1 AND user_id = $2)
	`, transactionID, userID)
	if err != nil {
		return nil, fmt.Errorf("look up transaction: %w", err)
	}
	if !owned {
		return nil, ErrTransactionNotFound
	}
	return s.events.Load(ctx, transactionID)
}
