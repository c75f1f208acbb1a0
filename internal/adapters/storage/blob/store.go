package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no blob is stored under a name.
var ErrNotFound = errors.New("blob not found")

// Store persists named text values, read and written wholesale.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, value string) error
}
