package projections

import (
	"context"
	"time"

	domain "campreg/internal/domain/registration"
)

// GetRegistrationDetailQuery carries query parameters.
type GetRegistrationDetailQuery struct {
	ID string
}

// GetRegistrationDetailResult carries the full record plus derived display values.
type GetRegistrationDetailResult struct {
	Registration domain.Registration `json:"registration"`
	Age          int                 `json:"age"`
	HasAge       bool                `json:"hasAge"`
	Category     string              `json:"category"`
}

// GetRegistrationDetailDeps holds dependencies for GetRegistrationDetail.
type GetRegistrationDetailDeps struct {
	Store RegistrationReader
	Now   func() time.Time
}

// QueryGetRegistrationDetail looks up one registration by id.
// PRE: query.ID is non-empty
// POST: the store's not-found error is returned unchanged for unknown ids
func QueryGetRegistrationDetail(ctx context.Context, query GetRegistrationDetailQuery, deps GetRegistrationDetailDeps) (GetRegistrationDetailResult, error) {
	r, err := deps.Store.FindByID(ctx, query.ID)
	if err != nil {
		return GetRegistrationDetailResult{}, err
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	age, ok := domain.AgeOn(r.DateOfBirth, now())
	return GetRegistrationDetailResult{
		Registration: r,
		Age:          age,
		HasAge:       ok,
		Category:     r.Category(),
	}, nil
}
