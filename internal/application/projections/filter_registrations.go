package projections

import (
	"strings"

	domain "campreg/internal/domain/registration"
)

// Age filter values.
const (
	AgeAll     = "all"
	AgeUnder18 = "under18"
	AgeOver18  = "over18"
)

// GenderAll disables the gender filter.
const GenderAll = "all"

// Filter narrows the dashboard list. Zero values match everything.
type Filter struct {
	Search string `json:"search"`
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

// NormalizeFilter lower-cases the enum dimensions and maps unknown values to "all".
func NormalizeFilter(f Filter) Filter {
	out := Filter{Search: strings.TrimSpace(f.Search), Age: AgeAll, Gender: GenderAll}
	switch age := strings.ToLower(strings.TrimSpace(f.Age)); age {
	case AgeUnder18, AgeOver18:
		out.Age = age
	}
	if g := strings.ToLower(strings.TrimSpace(f.Gender)); domain.IsGender(g) {
		out.Gender = g
	}
	return out
}

// Active reports whether any dimension narrows the list.
func (f Filter) Active() bool {
	n := NormalizeFilter(f)
	return n.Search != "" || n.Age != AgeAll || n.Gender != GenderAll
}

// FilterRegistrations returns the records matching every dimension of f, in input order.
// Search is a case-insensitive substring match over first name, last name,
// email and corps name. Age uses the stored IsUnder18 flag, never a
// recomputed age.
// PRE: none
// POST: pure and idempotent; result is a subsequence of records
func FilterRegistrations(records []domain.Registration, f Filter) []domain.Registration {
	f = NormalizeFilter(f)
	needle := strings.ToLower(f.Search)

	out := make([]domain.Registration, 0, len(records))
	for _, r := range records {
		if needle != "" && !matchesSearch(r, needle) {
			continue
		}
		if f.Age == AgeUnder18 && !r.IsUnder18 {
			continue
		}
		if f.Age == AgeOver18 && r.IsUnder18 {
			continue
		}
		if f.Gender != GenderAll && r.Gender != f.Gender {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesSearch(r domain.Registration, needle string) bool {
	for _, hay := range []string{r.FirstName, r.LastName, r.Email, r.CorpsName} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}
