package registration

import (
	"strings"
	"time"
)

// AdultAge is the age at which a participant no longer needs a guardian.
const AdultAge = 18

// DateLayout is the wire format of DateOfBirth (HTML date input).
const DateLayout = "2006-01-02"

// AgeOn returns the age in whole years on ref of someone born on dob.
// Returns false if dob is empty or not a YYYY-MM-DD date.
// INVARIANT: the birthday counts as reached on the day itself
func AgeOn(dob string, ref time.Time) (int, bool) {
	dob = strings.TrimSpace(dob)
	if dob == "" {
		return 0, false
	}
	birth, err := time.Parse(DateLayout, dob)
	if err != nil {
		return 0, false
	}
	age := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		age--
	}
	return age, true
}

// IsMinor reports whether someone born on dob is under 18 on ref.
// An empty or unreadable date is not a minor: the guardian step is skipped.
// PRE: none
// POST: pure; no side effects
func IsMinor(dob string, ref time.Time) bool {
	age, ok := AgeOn(dob, ref)
	if !ok {
		return false
	}
	return age < AdultAge
}
