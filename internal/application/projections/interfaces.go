package projections

import (
	"context"

	domain "campreg/internal/domain/registration"
)

// RegistrationReader is the read side of the registration collection.
type RegistrationReader interface {
	ListAll(ctx context.Context) ([]domain.Registration, error)
	FindByID(ctx context.Context, id string) (domain.Registration, error)
}
