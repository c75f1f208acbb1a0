package registration

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Gender values accepted on the personal step.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Guardian relationship values.
const (
	RelationshipParent      = "parent"
	RelationshipGuardian    = "guardian"
	RelationshipGrandparent = "grandparent"
	RelationshipOther       = "other"
)

// Photo/video consent values. Empty means the question was left unanswered.
const (
	ConsentYes = "yes"
	ConsentNo  = "no"
)

// Domain errors
var (
	ErrMissingID         = errors.New("registration id cannot be empty")
	ErrTermsNotAgreed    = errors.New("terms must be agreed to")
	ErrGuardianRequired  = errors.New("guardian details are required for participants under 18")
	ErrMissingTimestamp  = errors.New("registration time must be set")
	ErrInvalidGender     = errors.New("gender must be 'male' or 'female'")
	ErrInvalidConsent    = errors.New("photo/video consent must be 'yes', 'no' or empty")
	ErrInvalidEmail      = errors.New("email must be valid")
	ErrMissingPersonal   = errors.New("personal details are incomplete")
	ErrMissingEmergency  = errors.New("emergency contact is incomplete")
	ErrInvalidGuardianRe = errors.New("guardian relationship must be one of: parent, guardian, grandparent, other")
)

// emailPattern accepts anything shaped like local@domain.
var emailPattern = regexp.MustCompile(`^\S+@\S+$`)

// Personal is the participant block collected on the first step.
type Personal struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	CorpsName   string `json:"corpsName"`
}

// Guardian is collected only for minors.
type Guardian struct {
	GuardianFirstName    string `json:"guardianFirstName,omitempty"`
	GuardianLastName     string `json:"guardianLastName,omitempty"`
	GuardianEmail        string `json:"guardianEmail,omitempty"`
	GuardianPhone        string `json:"guardianPhone,omitempty"`
	GuardianRelationship string `json:"guardianRelationship,omitempty"`
}

// EmergencyContact relationship is free text.
type EmergencyContact struct {
	EmergencyName         string `json:"emergencyName"`
	EmergencyPhone        string `json:"emergencyPhone"`
	EmergencyRelationship string `json:"emergencyRelationship"`
}

// Medical fields are all optional.
type Medical struct {
	MedicalConditions string `json:"medicalConditions,omitempty"`
	Medications       string `json:"medications,omitempty"`
	Allergies         string `json:"allergies,omitempty"`
}

// Consent carries the review-step agreements.
type Consent struct {
	AgreedToTerms     bool   `json:"agreedToTerms"`
	PhotoVideoConsent string `json:"photoVideoConsent,omitempty"`
}

// Registration is a submitted, immutable event registration.
// The blocks are embedded so the JSON form stays flat, matching the
// collection endpoint's shape.
type Registration struct {
	ID string `json:"id"`
	Personal
	*Guardian
	EmergencyContact
	Medical
	Consent
	IsUnder18    bool      `json:"isUnder18"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Validate checks the invariants a record must satisfy before it is stored.
// PRE: Registration struct is populated
// POST: Returns nil if the record may be persisted, error otherwise
// INVARIANT: IsUnder18 implies a complete guardian block; AgreedToTerms is true
func (r *Registration) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if !r.AgreedToTerms {
		return ErrTermsNotAgreed
	}
	if r.RegisteredAt.IsZero() {
		return ErrMissingTimestamp
	}
	if anyBlank(r.FirstName, r.LastName, r.Email, r.Phone, r.DateOfBirth, r.CorpsName) {
		return ErrMissingPersonal
	}
	if !ValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	if !IsGender(r.Gender) {
		return ErrInvalidGender
	}
	if anyBlank(r.EmergencyName, r.EmergencyPhone, r.EmergencyRelationship) {
		return ErrMissingEmergency
	}
	if r.PhotoVideoConsent != "" && r.PhotoVideoConsent != ConsentYes && r.PhotoVideoConsent != ConsentNo {
		return ErrInvalidConsent
	}
	if r.IsUnder18 {
		if !r.HasGuardian() {
			return ErrGuardianRequired
		}
		if !ValidEmail(r.GuardianEmail) {
			return ErrInvalidEmail
		}
		if !IsRelationship(r.GuardianRelationship) {
			return ErrInvalidGuardianRe
		}
	}
	return nil
}

// HasGuardian reports whether the guardian block is fully populated.
// INVARIANT: Registration fields are not mutated
func (r *Registration) HasGuardian() bool {
	g := r.Guardian
	if g == nil {
		return false
	}
	return !anyBlank(g.GuardianFirstName, g.GuardianLastName, g.GuardianEmail, g.GuardianPhone, g.GuardianRelationship)
}

// FullName joins first and last name for display.
func (r *Registration) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Category is the dashboard label for the age group.
func (r *Registration) Category() string {
	if r.IsUnder18 {
		return "Youth"
	}
	return "Adult"
}

// ValidEmail reports whether s looks like local@domain.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsGender reports whether v is one of the accepted gender values.
func IsGender(v string) bool {
	return v == GenderMale || v == GenderFemale
}

// IsRelationship reports whether v is one of the accepted guardian relationships.
func IsRelationship(v string) bool {
	switch v {
	case RelationshipParent, RelationshipGuardian, RelationshipGrandparent, RelationshipOther:
		return true
	}
	return false
}

func anyBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
