package wizard

import (
	"sort"
	"strings"

	"campreg/internal/domain/registration"
)

// FieldErrors is the set of field names currently failing validation.
type FieldErrors map[string]bool

// Has reports whether field is in the set.
func (e FieldErrors) Has(field string) bool {
	return e[field]
}

// Empty reports whether no field failed.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Names returns the failing field names sorted for stable output.
func (e FieldErrors) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var requiredFields = map[Step][]string{
	StepPersonal:  {FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldDateOfBirth, FieldGender, FieldCorpsName},
	StepGuardian:  {FieldGuardianFirstName, FieldGuardianLastName, FieldGuardianEmail, FieldGuardianPhone, FieldGuardianRelationship},
	StepEmergency: {FieldEmergencyName, FieldEmergencyPhone, FieldEmergencyRelationship},
}

var emailFields = map[string]bool{
	FieldEmail:         true,
	FieldGuardianEmail: true,
}

// RequiredFields returns the required field names for step.
func RequiredFields(step Step) []string {
	return append([]string(nil), requiredFields[step]...)
}

// ValidateStep returns every invalid field on step for the given snapshot.
// The guardian step is only checked for minors; medical has no required fields.
// PRE: none
// POST: pure; the full invalid set is returned, never just the first failure
func ValidateStep(step Step, form Form, isMinor bool) FieldErrors {
	errs := FieldErrors{}

	switch step {
	case StepGuardian:
		if !isMinor {
			return errs
		}
	case StepReview:
		if !form.AgreedToTerms {
			errs[FieldAgreedToTerms] = true
		}
		return errs
	}

	for _, field := range requiredFields[step] {
		v := form.Get(field)
		if strings.TrimSpace(v) == "" {
			errs[field] = true
			continue
		}
		if emailFields[field] && !registration.ValidEmail(v) {
			errs[field] = true
		}
	}
	return errs
}
