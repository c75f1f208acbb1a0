package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campreg/internal/adapters/storage"
)

// SQLiteStore implements Store using the blob table.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a new blob store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get returns the value stored under name.
// PRE: name is non-empty
// POST: Returns ErrNotFound if name was never written
// INVARIANT: Store state is not mutated
func (s *SQLiteStore) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM blob WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get blob %s: %w", name, err)
	}
	return value, nil
}

// Put replaces the value stored under name.
// PRE: name is non-empty
// POST: Get(name) returns value
// INVARIANT: No other blobs are modified
func (s *SQLiteStore) Put(ctx context.Context, name, value string) error {
	if name == "" {
		return errors.New("blob name cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blob (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`, name, value, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put blob %s: %w", name, err)
	}
	return nil
}
