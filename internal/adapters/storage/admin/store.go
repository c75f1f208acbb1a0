package admin

import (
	"context"
	"sync"

	domain "campreg/internal/domain/admin"
)

// Store persists the admin credential and its lockout counters.
type Store interface {
	Get(ctx context.Context) (domain.Admin, error)
	Save(ctx context.Context, a domain.Admin) error
	Update(ctx context.Context, fn func(*domain.Admin) error) error
}

// MemoryStore keeps the admin in process memory. Lockout state resets on
// restart; the credential itself comes from configuration.
type MemoryStore struct {
	mu    sync.Mutex
	admin domain.Admin
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore seeds the store with a.
// PRE: a passes Validate
func NewMemoryStore(a domain.Admin) (*MemoryStore, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &MemoryStore{admin: a}, nil
}

// Get returns a copy of the admin.
func (s *MemoryStore) Get(context.Context) (domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin, nil
}

// Save replaces the admin's state.
// PRE: a passes Validate
func (s *MemoryStore) Save(_ context.Context, a domain.Admin) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = a
	return nil
}

// Update applies fn to the admin under the store lock. fn's changes are kept
// only when it returns nil.
// INVARIANT: concurrent Updates never lose each other's writes
func (s *MemoryStore) Update(_ context.Context, fn func(*domain.Admin) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.admin
	if err := fn(&a); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.admin = a
	return nil
}
