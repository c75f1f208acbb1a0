package wizard

import "fmt"

// Step identifies a wizard screen.
type Step int

const (
	StepPersonal  Step = 1
	StepGuardian  Step = 2
	StepEmergency Step = 3
	StepMedical   Step = 4
	StepReview    Step = 5

	// StepSubmitted is the terminal state after a successful submission.
	StepSubmitted Step = 6
)

// TotalSteps is the number of interactive steps.
const TotalSteps = 5

var stepLabels = map[Step]string{
	StepPersonal:  "Personal",
	StepGuardian:  "Guardian",
	StepEmergency: "Emergency",
	StepMedical:   "Medical",
	StepReview:    "Review",
	StepSubmitted: "Submitted",
}

// Label is the progress-indicator label of the step.
func (s Step) Label() string {
	if l, ok := stepLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("Step %d", int(s))
}

// Valid reports whether s is one of the interactive steps 1..5.
func (s Step) Valid() bool {
	return s >= StepPersonal && s <= StepReview
}

// Steps returns the interactive steps in order.
func Steps() []Step {
	return []Step{StepPersonal, StepGuardian, StepEmergency, StepMedical, StepReview}
}
