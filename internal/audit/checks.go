package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PostgresChecks are the steady-state properties of the circulation tables.
func PostgresChecks(db *sqlx.DB) []Check {
	count := func(query string) func(context.Context) (float64, error) {
		return func(ctx context.Context) (float64, error) {
			var n int64
			if err := db.GetContext(ctx, &n, query); err != nil {
				return 0, err
			}
			return float64(n), nil
		}
	}
	zero := Threshold{Operator: "==", Value: 0}

	return []Check{
		{
			Name:        "negative_inventory",
			Description: "Books whose available copy count dropped below zero",
			Query:       count(`SELECT COUNT(*) FROM books WHERE copies_available < 0`),
			Threshold:   zero,
		},
		{
			Name:        "return_before_checkout",
			Description: "Transactions returned before they were checked out",
			Query:       count(`SELECT COUNT(*) FROM transactions WHERE return_date < checkout_date`),
			Threshold:   zero,
		},
		{
			Name:        "transaction_event_gap",
			Description: "Transactions whose event history does not match their state",
			Query: count(`
				SELECT COUNT(*) FROM transactions t
				WHERE (
					SELECT COUNT(*) FROM events e
					WHERE e.aggregate_id = t.id AND e.aggregate_type = 'transaction'
				) <> CASE WHEN t.return_date IS NULL THEN 1 ELSE 2 END`),
			Threshold: zero,
		},
	}
}
