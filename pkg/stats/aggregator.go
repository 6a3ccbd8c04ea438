// Package stats computes daily usage statistics over the users and items
// tables. It backs the taskhub-aggregator binary and targets the PostgreSQL
// backend.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_stats_daily (
	date DATE PRIMARY KEY,
	new_users BIGINT NOT NULL DEFAULT 0,
	new_items BIGINT NOT NULL DEFAULT 0,
	completed_items BIGINT NOT NULL DEFAULT 0,
	total_users BIGINT NOT NULL DEFAULT 0,
	total_items BIGINT NOT NULL DEFAULT 0,
	computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Aggregator computes daily usage statistics
type Aggregator struct {
	db *sql.DB
}

// NewAggregator creates a new aggregator
func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// InitSchema creates the stats table if it does not exist
func (a *Aggregator) InitSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize stats schema: %w", err)
	}
	return nil
}

// AggregateDaily computes the stats row for the given date. Re-running for
// the same date overwrites the previous row, so backfills are safe.
func (a *Aggregator) AggregateDaily(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO usage_stats_daily (date, new_users, new_items, completed_items, total_users, total_items)
		SELECT
			$1::date AS date,
			(SELECT COUNT(*) FROM users
				WHERE created_at >= $1::date AND created_at < $1::date + INTERVAL '1 day') AS new_users,
			(SELECT COUNT(*) FROM items
				WHERE created_at >= $1::date AND created_at < $1::date + INTERVAL '1 day') AS new_items,
			(SELECT COUNT(*) FROM items
				WHERE is_completed
				AND updated_at >= $1::date AND updated_at < $1::date + INTERVAL '1 day') AS completed_items,
			(SELECT COUNT(*) FROM users WHERE created_at < $1::date + INTERVAL '1 day') AS total_users,
			(SELECT COUNT(*) FROM items WHERE created_at < $1::date + INTERVAL '1 day') AS total_items
		ON CONFLICT (date) DO UPDATE SET
			new_users = EXCLUDED.new_users,
			new_items = EXCLUDED.new_items,
			completed_items = EXCLUDED.completed_items,
			total_users = EXCLUDED.total_users,
			total_items = EXCLUDED.total_items,
			computed_at = NOW()
	`
	if _, err := a.db.ExecContext(ctx, query, date.Format("2006-01-02")); err != nil {
		return fmt.Errorf("failed to aggregate daily stats: %w", err)
	}
	return nil
}

// DailyStats is one row of usage_stats_daily
type DailyStats struct {
	Date           time.Time `json:"date"`
	NewUsers       int64     `json:"new_users"`
	NewItems       int64     `json:"new_items"`
	CompletedItems int64     `json:"completed_items"`
	TotalUsers     int64     `json:"total_users"`
	TotalItems     int64     `json:"total_items"`
	ComputedAt     time.Time `json:"computed_at"`
}

// GetDaily returns the stats row for a date
func (a *Aggregator) GetDaily(ctx context.Context, date time.Time) (*DailyStats, error) {
	row := &DailyStats{}
	err := a.db.QueryRowContext(ctx, `
		SELECT date, new_users, new_items, completed_items, total_users, total_items, computed_at
		FROM usage_stats_daily WHERE date = $1::date
	`, date.Format("2006-01-02")).Scan(
		&row.Date, &row.NewUsers, &row.NewItems, &row.CompletedItems, &row.TotalUsers, &row.TotalItems, &row.ComputedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	return row, nil
}
