package registration

import (
	"context"
	"errors"
	"fmt"

	domain "campreg/internal/domain/registration"
)

// Store errors
var (
	ErrNotFound   = errors.New("registration not found")
	ErrReadOnly   = errors.New("registration source is read-only")
	ErrDuplicate  = errors.New("registration id already stored")
	ErrOutOfOrder = errors.New("registration is older than the newest stored record")
)

// Store is the registration collection capability.
type Store interface {
	Append(ctx context.Context, r domain.Registration) error
	ListAll(ctx context.Context) ([]domain.Registration, error)
	FindByID(ctx context.Context, id string) (domain.Registration, error)
}

// StoreError reports a failed backend operation. It is never fatal: callers
// show a notice and keep their prior state.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("registration store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// findIn returns the record with id from records.
func findIn(records []domain.Registration, id string) (domain.Registration, error) {
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Registration{}, ErrNotFound
}
