package wizard

import (
	"strings"

	"campreg/internal/domain/registration"
)

// Field names as they appear in the HTML form and in FieldErrors.
const (
	FieldFirstName             = "firstName"
	FieldLastName              = "lastName"
	FieldEmail                 = "email"
	FieldPhone                 = "phone"
	FieldDateOfBirth           = "dateOfBirth"
	FieldGender                = "gender"
	FieldCorpsName             = "corpsName"
	FieldGuardianFirstName     = "guardianFirstName"
	FieldGuardianLastName      = "guardianLastName"
	FieldGuardianEmail         = "guardianEmail"
	FieldGuardianPhone         = "guardianPhone"
	FieldGuardianRelationship  = "guardianRelationship"
	FieldEmergencyName         = "emergencyName"
	FieldEmergencyPhone        = "emergencyPhone"
	FieldEmergencyRelationship = "emergencyRelationship"
	FieldMedicalConditions     = "medicalConditions"
	FieldMedications           = "medications"
	FieldAllergies             = "allergies"
	FieldAgreedToTerms         = "agreedToTerms"
	FieldPhotoVideoConsent     = "photoVideoConsent"
)

// Form is the in-progress snapshot of everything the visitor has typed.
type Form struct {
	registration.Personal
	registration.Guardian
	registration.EmergencyContact
	registration.Medical
	registration.Consent
}

// stepFields lists the form fields rendered on each step.
var stepFields = map[Step][]string{
	StepPersonal:  {FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldDateOfBirth, FieldGender, FieldCorpsName},
	StepGuardian:  {FieldGuardianFirstName, FieldGuardianLastName, FieldGuardianEmail, FieldGuardianPhone, FieldGuardianRelationship},
	StepEmergency: {FieldEmergencyName, FieldEmergencyPhone, FieldEmergencyRelationship},
	StepMedical:   {FieldMedicalConditions, FieldMedications, FieldAllergies},
	StepReview:    {FieldAgreedToTerms, FieldPhotoVideoConsent},
}

// Fields returns the names of the fields shown on step.
func Fields(step Step) []string {
	return append([]string(nil), stepFields[step]...)
}

// Get returns the string value of a field. Boolean fields read as "true" or "".
func (f *Form) Get(field string) string {
	switch field {
	case FieldFirstName:
		return f.FirstName
	case FieldLastName:
		return f.LastName
	case FieldEmail:
		return f.Email
	case FieldPhone:
		return f.Phone
	case FieldDateOfBirth:
		return f.DateOfBirth
	case FieldGender:
		return f.Gender
	case FieldCorpsName:
		return f.CorpsName
	case FieldGuardianFirstName:
		return f.GuardianFirstName
	case FieldGuardianLastName:
		return f.GuardianLastName
	case FieldGuardianEmail:
		return f.GuardianEmail
	case FieldGuardianPhone:
		return f.GuardianPhone
	case FieldGuardianRelationship:
		return f.GuardianRelationship
	case FieldEmergencyName:
		return f.EmergencyName
	case FieldEmergencyPhone:
		return f.EmergencyPhone
	case FieldEmergencyRelationship:
		return f.EmergencyRelationship
	case FieldMedicalConditions:
		return f.MedicalConditions
	case FieldMedications:
		return f.Medications
	case FieldAllergies:
		return f.Allergies
	case FieldAgreedToTerms:
		if f.AgreedToTerms {
			return "true"
		}
		return ""
	case FieldPhotoVideoConsent:
		return f.PhotoVideoConsent
	}
	return ""
}

// Set assigns a field from its submitted string value.
// Enum fields outside their allowed values are stored as empty so they
// surface as missing on validation.
func (f *Form) Set(field, value string) {
	value = strings.TrimSpace(value)
	switch field {
	case FieldFirstName:
		f.FirstName = value
	case FieldLastName:
		f.LastName = value
	case FieldEmail:
		f.Email = value
	case FieldPhone:
		f.Phone = value
	case FieldDateOfBirth:
		f.DateOfBirth = value
	case FieldGender:
		f.Gender = enumOrEmpty(strings.ToLower(value), registration.IsGender)
	case FieldCorpsName:
		f.CorpsName = value
	case FieldGuardianFirstName:
		f.GuardianFirstName = value
	case FieldGuardianLastName:
		f.GuardianLastName = value
	case FieldGuardianEmail:
		f.GuardianEmail = value
	case FieldGuardianPhone:
		f.GuardianPhone = value
	case FieldGuardianRelationship:
		f.GuardianRelationship = enumOrEmpty(strings.ToLower(value), registration.IsRelationship)
	case FieldEmergencyName:
		f.EmergencyName = value
	case FieldEmergencyPhone:
		f.EmergencyPhone = value
	case FieldEmergencyRelationship:
		f.EmergencyRelationship = value
	case FieldMedicalConditions:
		f.MedicalConditions = value
	case FieldMedications:
		f.Medications = value
	case FieldAllergies:
		f.Allergies = value
	case FieldAgreedToTerms:
		f.AgreedToTerms = isChecked(value)
	case FieldPhotoVideoConsent:
		f.PhotoVideoConsent = enumOrEmpty(strings.ToLower(value), func(v string) bool {
			return v == registration.ConsentYes || v == registration.ConsentNo
		})
	}
}

// Bind copies the fields of step from get into the form, leaving every other
// step's values untouched. Unchecked checkboxes are absent from a form post,
// so a missing agreedToTerms clears the flag.
func (f *Form) Bind(step Step, get func(field string) string) {
	for _, field := range stepFields[step] {
		f.Set(field, get(field))
	}
}

func enumOrEmpty(v string, ok func(string) bool) string {
	if ok(v) {
		return v
	}
	return ""
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}
