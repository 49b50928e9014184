package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	donor_id TEXT NOT NULL,
	amount REAL NOT NULL,
	currency TEXT NOT NULL,
	interval TEXT NOT NULL,
	campaign_description TEXT NOT NULL,
	tags TEXT NOT NULL,
	summary TEXT NOT NULL,
	active INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	last_charged INTEGER
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_donor ON subscriptions(donor_id, active);
`

// SQLStore is a database/sql backed Store. It is used with an in-process
// sqlite database; insertion order is the rowid order.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an existing database handle and ensures the schema exists
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create subscriptions schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// NewSQLiteStore opens a sqlite database at dsn and wraps it
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A shared in-memory database disappears when its last connection
	// closes; a single connection keeps it alive and serializes writes.
	db.SetMaxOpenConns(1)

	store, err := NewSQLStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database handle
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for health checks
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Add inserts a new subscription
func (s *SQLStore) Add(ctx context.Context, sub *Subscription) error {
	tags, err := json.Marshal(sub.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	var lastCharged interface{}
	if sub.LastCharged != nil {
		lastCharged = sub.LastCharged.UnixNano()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (donor_id, amount, currency, interval, campaign_description, tags, summary, active, created_at, last_charged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.DonorID, sub.Amount, sub.Currency, string(sub.Interval), sub.CampaignDescription,
		string(tags), sub.Summary, boolToInt(sub.Active), sub.CreatedAt.UnixNano(), lastCharged,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// Deactivate flips the first active subscription for donorID inactive
func (s *SQLStore) Deactivate(ctx context.Context, donorID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET active = 0
		WHERE id = (SELECT id FROM subscriptions WHERE donor_id = ? AND active = 1 ORDER BY id LIMIT 1)`,
		donorID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListActive returns all active subscriptions in insertion order
func (s *SQLStore) ListActive(ctx context.Context) ([]*Subscription, error) {
	return s.list(ctx, true)
}

// ListAll returns every subscription in insertion order
func (s *SQLStore) ListAll(ctx context.Context) ([]*Subscription, error) {
	return s.list(ctx, false)
}

func (s *SQLStore) list(ctx context.Context, activeOnly bool) ([]*Subscription, error) {
	query := `
		SELECT donor_id, amount, currency, interval, campaign_description, tags, summary, active, created_at, last_charged
		FROM subscriptions`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(rows *sql.Rows) (*Subscription, error) {
	var (
		sub         Subscription
		interval    string
		tagsJSON    string
		active      int
		createdAt   int64
		lastCharged sql.NullInt64
	)
	if err := rows.Scan(&sub.DonorID, &sub.Amount, &sub.Currency, &interval,
		&sub.CampaignDescription, &tagsJSON, &sub.Summary, &active, &createdAt, &lastCharged); err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	sub.Interval = Interval(interval)
	sub.Active = active != 0
	sub.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastCharged.Valid {
		t := time.Unix(0, lastCharged.Int64).UTC()
		sub.LastCharged = &t
	}
	if err := json.Unmarshal([]byte(tagsJSON), &sub.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return &sub, nil
}

// MarkCharged advances LastCharged on the identified subscription
func (s *SQLStore) MarkCharged(ctx context.Context, donorID string, createdAt, chargedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET last_charged = ?
		WHERE donor_id = ? AND created_at = ?
		  AND (last_charged IS NULL OR last_charged <= ?)`,
		chargedAt.UnixNano(), donorID, createdAt.UnixNano(), chargedAt.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark subscription charged: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// The record may exist with a newer last_charged; the skipped write
	// still counts as found.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM subscriptions WHERE donor_id = ? AND created_at = ?`,
		donorID, createdAt.UnixNano(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription existence: %w", err)
	}
	return exists > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
