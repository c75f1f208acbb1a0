package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"campreg/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the threshold used when none is configured.
const DefaultSlowQuery = 50 * time.Millisecond

// QueryObserver receives the duration of every statement, labelled by verb.
type QueryObserver interface {
	ObserveQuery(verb string, d time.Duration)
}

// TimedDB wraps a *sql.DB to log slow queries and feed the perf collector.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	observer  QueryObserver
	threshold time.Duration
}

var _ SQLDB = (*TimedDB)(nil)

// TimedOption configures a TimedDB.
type TimedOption func(*TimedDB)

// WithSlowQuery sets the slow-query warning threshold. Non-positive values keep the default.
func WithSlowQuery(d time.Duration) TimedOption {
	return func(t *TimedDB) {
		if d > 0 {
			t.threshold = d
		}
	}
}

// WithQueryObserver forwards statement timings to o.
func WithQueryObserver(o QueryObserver) TimedOption {
	return func(t *TimedDB) { t.observer = o }
}

// NewTimedDB wraps a *sql.DB with timing instrumentation.
// PRE: db is a valid database connection; collector may be nil
// POST: Returns a TimedDB that logs slow queries and records to collector
func NewTimedDB(db *sql.DB, collector *perf.Collector, opts ...TimedOption) *TimedDB {
	t := &TimedDB{db: db, collector: collector, threshold: DefaultSlowQuery}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RawDB returns the underlying *sql.DB (needed for migrations and pool config).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

// queryVerb returns the upper-cased leading keyword of query, e.g. "SELECT".
func queryVerb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

func (t *TimedDB) logQuery(op, query string, start time.Time) {
	elapsed := time.Since(start)
	durationMs := float64(elapsed.Microseconds()) / 1000.0
	verb := queryVerb(query)

	if elapsed >= t.threshold {
		slog.Warn("slow_query", "op", op, "verb", verb, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "verb", verb, "duration_ms", durationMs)
	}

	if t.observer != nil {
		t.observer.ObserveQuery(verb, elapsed)
	}
	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       op + " " + verb,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

// ExecContext wraps sql.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("exec", query, start)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.logQuery("query", query, start)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.logQuery("query_row", query, start)
	return row
}

// BeginTx wraps sql.DB.BeginTx with timing.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.logQuery("begin", "BEGIN", start)
	return tx, err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
// POST: returns nil if connection is alive
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}
