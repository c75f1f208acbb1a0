package projections

import (
	"context"
	"strings"
	"time"

	"campreg/internal/application/listutil"
	domain "campreg/internal/domain/registration"
)

// GetRegistrationListQuery carries query parameters.
type GetRegistrationListQuery struct {
	Filter  Filter
	Page    int
	PerPage int
}

// RegistrationRow is one dashboard card.
type RegistrationRow struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	CorpsName  string    `json:"corpsName"`
	Gender     string    `json:"gender"`
	Age        int       `json:"age"`
	HasAge     bool      `json:"hasAge"`
	IsUnder18  bool      `json:"isUnder18"`
	Category   string    `json:"category"`
	Registered time.Time `json:"registeredAt"`

	// GuardianName is set only for minors with a guardian on file.
	GuardianName   string `json:"guardianName,omitempty"`
	EmergencyName  string `json:"emergencyName"`
	EmergencyPhone string `json:"emergencyPhone"`
}

// RegistrationStats summarizes the whole collection, independent of the filter.
type RegistrationStats struct {
	Total        int `json:"total"`
	Under18      int `json:"under18"`
	DistinctCorp int `json:"distinctCorps"`
}

// GetRegistrationListResult carries the query result.
type GetRegistrationListResult struct {
	Rows     []RegistrationRow `json:"registrations"`
	Stats    RegistrationStats `json:"stats"`
	Matching int               `json:"matching"`
	Filter   Filter            `json:"filter"`
	Page     listutil.PageInfo `json:"page"`
}

// Empty reports whether nothing has been registered at all.
func (r GetRegistrationListResult) Empty() bool { return r.Stats.Total == 0 }

// NoMatches reports whether registrations exist but the filter hides all of them.
func (r GetRegistrationListResult) NoMatches() bool { return r.Stats.Total > 0 && r.Matching == 0 }

// GetRegistrationListDeps holds dependencies for GetRegistrationList.
type GetRegistrationListDeps struct {
	Store RegistrationReader
	Now   func() time.Time
}

// QueryGetRegistrationList loads the collection once and returns the filtered page.
// PRE: deps.Store is set
// POST: Stats cover every record; Rows are the requested page of the filtered list
// INVARIANT: store state is not mutated
func QueryGetRegistrationList(ctx context.Context, query GetRegistrationListQuery, deps GetRegistrationListDeps) (GetRegistrationListResult, error) {
	records, err := deps.Store.ListAll(ctx)
	if err != nil {
		return GetRegistrationListResult{}, err
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	ref := now()

	filter := NormalizeFilter(query.Filter)
	matched := FilterRegistrations(records, filter)
	page := listutil.NewPageInfo(query.Page, query.PerPage, len(matched))

	visible := listutil.Slice(matched, page)
	rows := make([]RegistrationRow, 0, len(visible))
	for _, r := range visible {
		rows = append(rows, toRow(r, ref))
	}

	return GetRegistrationListResult{
		Rows:     rows,
		Stats:    computeStats(records),
		Matching: len(matched),
		Filter:   filter,
		Page:     page,
	}, nil
}

func toRow(r domain.Registration, ref time.Time) RegistrationRow {
	age, ok := domain.AgeOn(r.DateOfBirth, ref)
	row := RegistrationRow{
		ID:         r.ID,
		FullName:   r.FullName(),
		Email:      r.Email,
		Phone:      r.Phone,
		CorpsName:  r.CorpsName,
		Gender:     r.Gender,
		Age:        age,
		HasAge:     ok,
		IsUnder18:  r.IsUnder18,
		Category:   r.Category(),
		Registered: r.RegisteredAt,

		EmergencyName:  r.EmergencyName,
		EmergencyPhone: r.EmergencyPhone,
	}
	if r.IsUnder18 && r.Guardian != nil && r.GuardianFirstName != "" {
		row.GuardianName = strings.TrimSpace(r.GuardianFirstName + " " + r.GuardianLastName)
	}
	return row
}

// computeStats counts corps case-insensitively, ignoring blanks.
func computeStats(records []domain.Registration) RegistrationStats {
	corps := make(map[string]struct{})
	var s RegistrationStats
	for _, r := range records {
		s.Total++
		if r.IsUnder18 {
			s.Under18++
		}
		if c := strings.ToLower(strings.TrimSpace(r.CorpsName)); c != "" {
			corps[c] = struct{}{}
		}
	}
	s.DistinctCorp = len(corps)
	return s
}
