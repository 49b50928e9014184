package subscription

import (
	"context"
	"time"
)

// Store is the single authority over subscription state. All mutation of
// Active and LastCharged goes through it so concurrent tick workers and
// cancellation requests observe a consistent view.
//
// The store performs no validation; input is validated by the HTTP layer.
type Store interface {
	// Add inserts a new subscription. No dedup check is performed.
	Add(ctx context.Context, sub *Subscription) error

	// Deactivate finds the first active subscription for donorID in
	// insertion order, flips it inactive, and reports whether one was
	// found. Multiple active subscriptions per donor should not normally
	// occur; first-by-insertion-order is the defined tie-break.
	Deactivate(ctx context.Context, donorID string) (bool, error)

	// ListActive returns copies of all active subscriptions in insertion
	// order.
	ListActive(ctx context.Context) ([]*Subscription, error)

	// ListAll returns copies of every subscription ever added, including
	// inactive ones, in insertion order.
	ListAll(ctx context.Context) ([]*Subscription, error)

	// MarkCharged records a charge on the subscription identified by
	// (donorID, createdAt), advancing LastCharged to chargedAt. The write
	// is skipped (and false returned) if no such record exists; it still
	// applies to a record deactivated after the charge began, and it never
	// moves LastCharged backwards.
	MarkCharged(ctx context.Context, donorID string, createdAt, chargedAt time.Time) (bool, error)
}

// Config selects and configures a store backend
type Config struct {
	// Type is "memory" or "sqlite"
	Type string

	// SQLiteDSN is the sqlite data source; defaults to an in-memory
	// database shared within the process.
	SQLiteDSN string
}

// DefaultConfig returns sensible default store configuration
func DefaultConfig() Config {
	return Config{
		Type:      "memory",
		SQLiteDSN: "file:billing?mode=memory&cache=shared",
	}
}
