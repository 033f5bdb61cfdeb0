// internal/catalog/domain.go
package catalog

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Book represents a title held by the library and how many copies can be lent right now.
type Book struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	ISBN            string    `json:"isbn" db:"isbn"`
	PublishedDate   *Date     `json:"published_date" db:"published_date"`
	CopiesAvailable int       `json:"copies_available" db:"copies_available"`
	Version         int       `json:"version" db:"version"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// BookInput carries the writable fields of a book.
type BookInput struct {
	Title           string `json:"title" validate:"required,max=255"`
	Author          string `json:"author" validate:"required,max=255"`
	ISBN            string `json:"isbn" validate:"required,max=13"`
	PublishedDate   *Date  `json:"published_date"`
	CopiesAvailable int    `json:"copies_available" validate:"gte=0"`
}

// UpdateBookInput replaces the writable fields of a book at the given version.
type UpdateBookInput struct {
	BookInput
	Version int `json:"version" validate:"required,min=1"`
}

// Query narrows and orders a book listing.
type Query struct {
	// Search matches every whitespace separated term against title, author or isbn.
	Search string
	// Ordering is a comma separated list of fields; a leading "-" sorts descending.
	Ordering      string
	AvailableOnly bool
}

const dateLayout = "2006-01-02"

// Date is a calendar day without a time of day.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("date must have format YYYY-MM-DD: %w", err)
	}
	d.Time = t
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

const aggregateType = "book"

const (
	EventBookAdded   = "BookAdded"
	EventBookUpdated = "BookUpdated"
	EventBookRemoved = "BookRemoved"
)

// BookAddedEvent is recorded when a book enters the catalog.
type BookAddedEvent struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	CopiesAvailable int       `json:"copies_available"`
}

// BookUpdatedEvent carries the state of a book after an edit.
type BookUpdatedEvent struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	CopiesAvailable int       `json:"copies_available"`
}

// BookRemovedEvent is recorded when a book leaves the catalog.
type BookRemovedEvent struct {
	ID uuid.UUID `json:"id"`
}
