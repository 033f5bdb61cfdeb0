package circulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

// TestMemoryStoreInventory drives random checkouts and returns and checks that no copy is
// ever created or lost: available copies plus open loans always equal the initial stock.
func TestMemoryStoreInventory(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := NewMemoryStore()

		books := make([]uuid.UUID, rapid.IntRange(1, 3).Draw(t, "books"))
		stock := make(map[uuid.UUID]int, len(books))
		for i := range books {
			books[i] = uuid.New()
			stock[books[i]] = rapid.IntRange(0, 3).Draw(t, "copies")
			store.AddBook(books[i], stock[books[i]])
		}
		users := []uuid.UUID{uuid.New(), uuid.New()}
		maxOpen := rapid.IntRange(0, 2).Draw(t, "maxOpen")

		var opened []*Transaction
		now := checkoutAt

		t.Repeat(map[string]func(*rapid.T){
			"checkout": func(t *rapid.T) {
				txn := &Transaction{
					ID:           uuid.New(),
					UserID:       rapid.SampledFrom(users).Draw(t, "user"),
					BookID:       rapid.SampledFrom(books).Draw(t, "book"),
					CheckoutDate: now,
				}
				err := store.Open(ctx, txn, maxOpen)
				switch {
				case err == nil:
					opened = append(opened, txn)
				case errors.Is(err, ErrNoCopiesAvailable), errors.Is(err, ErrLoanLimitReached):
				default:
					t.Fatalf("unexpected checkout error: %v", err)
				}
			},
			"return": func(t *rapid.T) {
				if len(opened) == 0 {
					t.Skip("nothing checked out")
				}
				txn := rapid.SampledFrom(opened).Draw(t, "transaction")
				user := rapid.SampledFrom(users).Draw(t, "returner")
				now = now.Add(time.Duration(rapid.IntRange(0, 30).Draw(t, "days")) * 24 * time.Hour)

				_, err := store.Close(ctx, user, txn.ID, now)
				if err != nil && !errors.Is(err, ErrTransactionNotFound) {
					t.Fatalf("unexpected return error: %v", err)
				}
			},
			"": func(t *rapid.T) {
				open := make(map[uuid.UUID]int)
				perUser := make(map[uuid.UUID]int)
				for _, u := range users {
					txns, err := store.ListByUser(ctx, u)
					if err != nil {
						t.Fatal(err)
					}
					for _, txn := range txns {
						if txn.IsOpen() {
							open[txn.BookID]++
							perUser[u]++
						}
					}
				}
				for _, b := range books {
					available, _ := store.CopiesAvailable(b)
					if available < 0 {
						t.Fatalf("book %s has %d copies", b, available)
					}
					if available+open[b] != stock[b] {
						t.Fatalf("book %s: %d available + %d on loan != %d stocked", b, available, open[b], stock[b])
					}
				}
				if maxOpen > 0 {
					for u, n := range perUser {
						if n > maxOpen {
							t.Fatalf("user %s holds %d loans, limit %d", u, n, maxOpen)
						}
					}
				}
			},
		})
	})
}
