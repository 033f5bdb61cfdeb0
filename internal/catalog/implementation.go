// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"librarydesk/internal/database"
	"librarydesk/pkg/eventstore"
)

const selectBook = `
	SELECT id, title, author, isbn, published_date, copies_available, version, created_at, updated_at
	FROM books
`

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sqlx.DB
	logger     *zap.Logger
}

// NewService creates a new catalog service instance.
func NewService(es *eventstore.EventStore, db *sqlx.DB, logger *zap.Logger) Service {
	return &service{
		eventStore: es,
		db:         db,
		logger:     logger.Named("catalog"),
	}
}

// AddBook creates a new book in the catalog.
func (s *service) AddBook(ctx context.Context, in BookInput) (*Book, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	book := &Book{
		ID:              uuid.New(),
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		PublishedDate:   in.PublishedDate,
		CopiesAvailable: in.CopiesAvailable,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO books (id, title, author, isbn, published_date, copies_available, version, created_at, updated_at)
		VALUES (:id, :title, :author, :isbn, :published_date, :copies_available, :version, :created_at, :updated_at)
	`, book)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}

	event, err := eventstore.NewEvent(EventBookAdded, BookAddedEvent{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		CopiesAvailable: book.CopiesAvailable,
	})
	if err != nil {
		return nil, err
	}
	if err := s.eventStore.AppendTx(ctx, tx, book.ID, aggregateType, 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("book added", zap.Stringer("book_id", book.ID), zap.String("isbn", book.ISBN))
	return book, nil
}

// GetBook retrieves a book from the catalog by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	book := &Book{}
	err := s.db.GetContext(ctx, book, selectBook+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// ListBooks returns the books matching q.
func (s *service) ListBooks(ctx context.Context, q Query) ([]*Book, error) {
	query, args, err := buildListQuery(q)
	if err != nil {
		return nil, fmt.Errorf("build book query: %w", err)
	}

	books := []*Book{}
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// UpdateBook replaces the writable fields of a book if in.Version is still current.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, in UpdateBookInput) (*Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	book := &Book{}
	err = tx.GetContext(ctx, book, `
		UPDATE books
		SET title = $3, author = $4, isbn = $5, published_date = $6, copies_available = $7,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING id, title, author, isbn, published_date, copies_available, version, created_at, updated_at
	`, id, in.Version, in.Title, in.Author, in.ISBN, in.PublishedDate, in.CopiesAvailable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missingOrConflict(ctx, tx, id)
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	event, err := eventstore.NewEvent(EventBookUpdated, BookUpdatedEvent{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		CopiesAvailable: book.CopiesAvailable,
	})
	if err != nil {
		return nil, err
	}
	if err := s.eventStore.AppendTx(ctx, tx, id, aggregateType, in.Version, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return book, nil
}

// RemoveBook deletes a book and, with it, every transaction that references it.
func (s *service) RemoveBook(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int
	err = tx.GetContext(ctx, &version, `DELETE FROM books WHERE id = $1 RETURNING version`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookNotFound
	}
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	event, err := eventstore.NewEvent(EventBookRemoved, BookRemovedEvent{ID: id})
	if err != nil {
		return err
	}
	if err := s.eventStore.AppendTx(ctx, tx, id, aggregateType, version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Info("book removed", zap.Stringer("book_id", id))
	return nil
}

func (s *service) missingOrConflict(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("look up book: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}
	return ErrVersionConflict
}
