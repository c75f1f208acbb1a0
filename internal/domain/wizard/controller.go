package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"campreg/internal/domain/registration"
)

// Wizard errors
var (
	ErrIncomplete = errors.New("please fill all required fields")
	ErrClosed     = errors.New("registration already submitted")
	ErrNotReview  = errors.New("registration can only be submitted from the review step")
)

// Appender persists a finished registration.
type Appender interface {
	Append(ctx context.Context, r registration.Registration) error
}

// Controller sequences the registration steps for one visitor.
// It is not safe for concurrent use; callers serialize access per visitor.
type Controller struct {
	step      Step
	isUnder18 bool
	form      Form
	errors    FieldErrors
	submitted registration.Registration

	now   func() time.Time
	newID func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the reference clock used for age checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// New returns a controller on the personal step with no errors.
func New(opts ...Option) *Controller {
	c := &Controller{
		step:   StepPersonal,
		errors: FieldErrors{},
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Step returns the current step.
func (c *Controller) Step() Step { return c.step }

// IsUnder18 returns the latched minor flag.
func (c *Controller) IsUnder18() bool { return c.isUnder18 }

// Form returns a copy of the in-progress form.
func (c *Controller) Form() Form { return c.form }

// Errors returns a copy of the fields flagged by the last failed check.
func (c *Controller) Errors() FieldErrors {
	out := make(FieldErrors, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// Submitted reports whether the wizard reached its terminal state.
func (c *Controller) Submitted() bool { return c.step == StepSubmitted }

// Registration returns the stored record once submitted.
func (c *Controller) Registration() (registration.Registration, bool) {
	return c.submitted, c.Submitted()
}

// Bind merges the values of step's fields into the form.
// PRE: the wizard has not been submitted
// POST: only fields belonging to step change
func (c *Controller) Bind(step Step, get func(field string) string) error {
	if c.Submitted() {
		return ErrClosed
	}
	c.form.Bind(step, get)
	return nil
}

// Advance validates the current step and moves forward.
// PRE: the wizard has not been submitted
// POST: on failure the step is unchanged and Errors holds every invalid field;
// on success errors are cleared and the guardian step is skipped for adults
// INVARIANT: isUnder18 changes only on a successful advance from the personal step
func (c *Controller) Advance() error {
	if c.Submitted() {
		return ErrClosed
	}
	if errs := ValidateStep(c.step, c.form, c.isUnder18); !errs.Empty() {
		c.errors = errs
		return ErrIncomplete
	}
	if c.step == StepPersonal {
		c.isUnder18 = registration.IsMinor(c.form.DateOfBirth, c.now())
	}
	c.errors = FieldErrors{}

	switch {
	case c.step == StepPersonal && !c.isUnder18:
		c.step = StepEmergency
	case c.step == StepGuardian && !c.isUnder18:
		c.step = StepEmergency
	default:
		c.step = min(c.step+1, StepReview)
	}
	return nil
}

// Retreat moves back one step, mirroring the guardian skip for adults.
// PRE: the wizard has not been submitted
// POST: step >= StepPersonal; errors cleared
func (c *Controller) Retreat() error {
	if c.Submitted() {
		return ErrClosed
	}
	c.errors = FieldErrors{}
	if c.step == StepEmergency && !c.isUnder18 {
		c.step = StepPersonal
		return nil
	}
	c.step = max(c.step-1, StepPersonal)
	return nil
}

// Submit validates the review step, builds the record and appends it.
// PRE: current step is StepReview
// POST: on success the wizard is terminal; on any failure the step and the
// form are unchanged so the visitor can resubmit
func (c *Controller) Submit(ctx context.Context, store Appender) (registration.Registration, error) {
	if c.Submitted() {
		return registration.Registration{}, ErrClosed
	}
	if c.step != StepReview {
		return registration.Registration{}, ErrNotReview
	}
	if errs := ValidateStep(StepReview, c.form, c.isUnder18); !errs.Empty() {
		c.errors = errs
		return registration.Registration{}, ErrIncomplete
	}

	rec := c.build()
	if err := rec.Validate(); err != nil {
		return registration.Registration{}, fmt.Errorf("invalid registration: %w", err)
	}
	if err := store.Append(ctx, rec); err != nil {
		return registration.Registration{}, fmt.Errorf("save registration: %w", err)
	}

	c.errors = FieldErrors{}
	c.submitted = rec
	c.step = StepSubmitted
	return rec, nil
}

// build assembles the immutable record from the form and the latched flag.
func (c *Controller) build() registration.Registration {
	rec := registration.Registration{
		ID:               c.newID(),
		Personal:         c.form.Personal,
		EmergencyContact: c.form.EmergencyContact,
		Medical:          c.form.Medical,
		Consent:          c.form.Consent,
		IsUnder18:        c.isUnder18,
		RegisteredAt:     c.now().UTC().Truncate(time.Millisecond),
	}
	if c.isUnder18 {
		g := c.form.Guardian
		rec.Guardian = &g
	}
	return rec
}
