package stats

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockAggregator(t *testing.T) (*Aggregator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAggregator(db), mock
}

func TestInitSchema(t *testing.T) {
	agg, mock := newMockAggregator(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS usage_stats_daily`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, agg.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateDaily(t *testing.T) {
	agg, mock := newMockAggregator(t)

	mock.ExpectExec(`INSERT INTO usage_stats_daily`).
		WithArgs("2026-08-31").
		WillReturnResult(sqlmock.NewResult(0, 1))

	date := time.Date(2026, 8, 31, 13, 45, 0, 0, time.UTC)
	require.NoError(t, agg.AggregateDaily(context.Background(), date))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateDaily_UsesDateOnly(t *testing.T) {
	agg, mock := newMockAggregator(t)

	// The time-of-day component never reaches the query
	mock.ExpectExec(`INSERT INTO usage_stats_daily`).
		WithArgs("2026-01-02").
		WillReturnResult(sqlmock.NewResult(0, 1))

	date := time.Date(2026, 1, 2, 23, 59, 59, 0, time.UTC)
	require.NoError(t, agg.AggregateDaily(context.Background(), date))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDaily(t *testing.T) {
	agg, mock := newMockAggregator(t)

	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	computedAt := time.Date(2026, 9, 1, 0, 5, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"date", "new_users", "new_items", "completed_items", "total_users", "total_items", "computed_at",
	}).AddRow(date, int64(3), int64(12), int64(5), int64(40), int64(220), computedAt)

	mock.ExpectQuery(`SELECT date, new_users, new_items, completed_items, total_users, total_items, computed_at\s+FROM usage_stats_daily`).
		WithArgs("2026-08-31").
		WillReturnRows(rows)

	stats, err := agg.GetDaily(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.NewUsers)
	assert.Equal(t, int64(12), stats.NewItems)
	assert.Equal(t, int64(5), stats.CompletedItems)
	assert.Equal(t, int64(40), stats.TotalUsers)
	assert.Equal(t, int64(220), stats.TotalItems)
	assert.Equal(t, computedAt, stats.ComputedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDaily_NoRow(t *testing.T) {
	agg, mock := newMockAggregator(t)

	mock.ExpectQuery(`SELECT .+ FROM usage_stats_daily`).
		WithArgs("2026-08-31").
		WillReturnRows(sqlmock.NewRows([]string{
			"date", "new_users", "new_items", "completed_items", "total_users", "total_items", "computed_at",
		}))

	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	stats, err := agg.GetDaily(context.Background(), date)
	assert.Nil(t, stats)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
