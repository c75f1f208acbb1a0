package registration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"campreg/internal/adapters/storage/blob"
	domain "campreg/internal/domain/registration"
)

// BlobName is the blob holding the whole collection as a JSON array.
const BlobName = "registrations"

// LocalStore keeps the collection in a single named blob.
type LocalStore struct {
	mu    sync.Mutex
	blobs blob.Store
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a store over blobs.
func NewLocalStore(blobs blob.Store) *LocalStore {
	return &LocalStore{blobs: blobs}
}

// Append adds r to the end of the collection.
// PRE: r passes Validate
// POST: ListAll ends with r; earlier records are unchanged
// INVARIANT: ids stay unique and RegisteredAt is non-decreasing in insertion order
func (s *LocalStore) Append(ctx context.Context, r domain.Registration) error {
	if err := r.Validate(); err != nil {
		return &StoreError{Op: "append", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, err := findIn(records, r.ID); err == nil {
		return &StoreError{Op: "append", Err: ErrDuplicate}
	}
	if n := len(records); n > 0 && r.RegisteredAt.Before(records[n-1].RegisteredAt) {
		return &StoreError{Op: "append", Err: ErrOutOfOrder}
	}

	data, err := json.Marshal(append(records, r))
	if err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	if err := s.blobs.Put(ctx, BlobName, string(data)); err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	return nil
}

// ListAll returns every stored record in insertion order.
// POST: an absent blob is an empty collection, never an error
// INVARIANT: Store state is not mutated
func (s *LocalStore) ListAll(ctx context.Context) ([]domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// FindByID returns the record with id or ErrNotFound.
func (s *LocalStore) FindByID(ctx context.Context, id string) (domain.Registration, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return domain.Registration{}, err
	}
	return findIn(records, id)
}

func (s *LocalStore) load(ctx context.Context) ([]domain.Registration, error) {
	raw, err := s.blobs.Get(ctx, BlobName)
	if errors.Is(err, blob.ErrNotFound) {
		return []domain.Registration{}, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "read", Err: err}
	}
	records := []domain.Registration{}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, &StoreError{Op: "decode", Err: err}
	}
	return records, nil
}
