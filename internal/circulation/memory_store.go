// internal/circulation/memory_store.go
package circulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"librarydesk/pkg/eventstore"
)

// MemoryStore is a Store held in process memory. A single mutex serialises every
// operation, which gives Open and Close the same all-or-nothing behaviour as the
// database store.
type MemoryStore struct {
	mu           sync.Mutex
	copies       map[uuid.UUID]int
	transactions map[uuid.UUID]*Transaction
	events       map[uuid.UUID][]eventstore.Event
	nextEventID  int64
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		copies:       make(map[uuid.UUID]int),
		transactions: make(map[uuid.UUID]*Transaction),
		events:       make(map[uuid.UUID][]eventstore.Event),
		now:          time.Now,
	}
}

// AddBook registers a book with the given number of available copies.
func (m *MemoryStore) AddBook(bookID uuid.UUID, copies int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.copies[bookID] = copies
}

// CopiesAvailable reports the current counter of a book.
func (m *MemoryStore) CopiesAvailable(bookID uuid.UUID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.copies[bookID]
	return n, ok
}

func (m *MemoryStore) Open(_ context.Context, txn *Transaction, maxOpen int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	available, ok := m.copies[txn.BookID]
	if !ok {
		return ErrBookNotFound
	}
	if available <= 0 {
		return ErrNoCopiesAvailable
	}
	if maxOpen > 0 && m.openCount(txn.UserID) >= maxOpen {
		return ErrLoanLimitReached
	}

	event, err := eventstore.NewEvent(EventTransactionOpened, openedEvent(txn))
	if err != nil {
		return err
	}

	m.copies[txn.BookID] = available - 1
	stored := *txn
	m.transactions[txn.ID] = &stored
	m.append(txn.ID, event)
	return nil
}

func (m *MemoryStore) Close(_ context.Context, userID, transactionID uuid.UUID, at time.Time) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.transactions[transactionID]
	if !ok || stored.UserID != userID || !stored.IsOpen() {
		return nil, ErrTransactionNotFound
	}

	closed := *stored
	closed.ReturnDate = &at
	event, err := eventstore.NewEvent(EventTransactionClosed, closedEvent(&closed))
	if err != nil {
		return nil, err
	}

	m.transactions[transactionID] = &closed
	m.copies[closed.BookID]++
	m.append(transactionID, event)
	out := closed
	return &out, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*Transaction, error) {
	return m.filter(func(t *Transaction) bool {
		return t.UserID == userID
	}), nil
}

func (m *MemoryStore) ListOverdueByUser(_ context.Context, userID uuid.UUID, cutoff time.Time) ([]*Transaction, error) {
	return m.filter(func(t *Transaction) bool {
		return t.UserID == userID && t.IsOpen() && t.CheckoutDate.Before(cutoff)
	}), nil
}

func (m *MemoryStore) Events(_ context.Context, userID, transactionID uuid.UUID) ([]eventstore.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.transactions[transactionID]
	if !ok || stored.UserID != userID {
		return nil, ErrTransactionNotFound
	}
	return append([]eventstore.Event(nil), m.events[transactionID]...), nil
}

func (m *MemoryStore) openCount(userID uuid.UUID) int {
	n := 0
	for _, t := range m.transactions {
		if t.UserID == userID && t.IsOpen() {
			n++
		}
	}
	return n
}

func (m *MemoryStore) append(aggregateID uuid.UUID, event eventstore.Event) {
	m.nextEventID++
	event.ID = m.nextEventID
	event.AggregateID = aggregateID
	event.AggregateType = aggregateType
	event.Version = len(m.events[aggregateID]) + 1
	event.CreatedAt = m.now().UTC()
	m.events[aggregateID] = append(m.events[aggregateID], event)
}

func (m *MemoryStore) filter(keep func(*Transaction) bool) []*Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*Transaction{}
	for _, t := range m.transactions {
		if keep(t) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckoutDate.Equal(out[j].CheckoutDate) {
			return out[i].CheckoutDate.After(out[j].CheckoutDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
