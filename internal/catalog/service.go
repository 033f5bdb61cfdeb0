// internal/catalog/service.go
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrDuplicateISBN   = errors.New("a book with that isbn already exists")
	ErrVersionConflict = errors.New("book was modified concurrently")
)

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, in BookInput) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListBooks(ctx context.Context, q Query) ([]*Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, in UpdateBookInput) (*Book, error)
	RemoveBook(ctx context.Context, id uuid.UUID) error
}
