package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	emailAdapter "campreg/internal/adapters/email"
	"campreg/internal/adapters/markdown"
	domain "campreg/internal/domain/registration"
	"campreg/internal/domain/wizard"
)

// SubmitMetrics receives submission outcomes. May be nil.
type SubmitMetrics interface {
	IncRegistration(category string)
	IncStepRejected(step string)
	IncStoreError(op string)
	IncConfirmationEmail(result string)
}

// SubmitRegistrationInput carries input for the submit orchestrator.
type SubmitRegistrationInput struct {
	Wizard *wizard.Controller
}

// SubmitRegistrationDeps holds dependencies for SubmitRegistration.
type SubmitRegistrationDeps struct {
	Store       wizard.Appender
	EmailSender emailAdapter.Sender // nil disables confirmation emails
	Metrics     SubmitMetrics
	EventName   string
}

// ExecuteSubmitRegistration submits the wizard and sends confirmation emails.
// PRE: input.Wizard is on the review step and serialized by the caller
// POST: on success the record is stored and the wizard is terminal; email
// failures are logged and never undo the registration
func ExecuteSubmitRegistration(ctx context.Context, input SubmitRegistrationInput, deps SubmitRegistrationDeps) (domain.Registration, error) {
	rec, err := input.Wizard.Submit(ctx, deps.Store)
	if err != nil {
		switch {
		case errors.Is(err, wizard.ErrIncomplete):
			if deps.Metrics != nil {
				deps.Metrics.IncStepRejected(wizard.StepReview.Label())
			}
		case errors.Is(err, wizard.ErrClosed), errors.Is(err, wizard.ErrNotReview):
		default:
			slog.Error("store_error", "op", "append", "error", err)
			if deps.Metrics != nil {
				deps.Metrics.IncStoreError("append")
			}
		}
		return domain.Registration{}, err
	}

	slog.Info("registration_submitted", "registration_id", rec.ID, "category", rec.Category())
	if deps.Metrics != nil {
		deps.Metrics.IncRegistration(rec.Category())
	}

	if deps.EmailSender != nil {
		sendConfirmation(ctx, rec, deps)
	}
	return rec, nil
}

func sendConfirmation(ctx context.Context, rec domain.Registration, deps SubmitRegistrationDeps) {
	result := "sent"
	defer func() {
		if deps.Metrics != nil {
			deps.Metrics.IncConfirmationEmail(result)
		}
	}()

	body := ConfirmationMarkdown(rec, deps.EventName)
	html, err := markdown.ToHTML(body)
	if err != nil {
		result = "failed"
		slog.Error("email_event", "event", "confirmation_render_failed", "registration_id", rec.ID, "error", err)
		return
	}

	confirmation := func(to string) emailAdapter.Message {
		return emailAdapter.Message{
			To:      to,
			Subject: fmt.Sprintf("%s registration received", eventOrDefault(deps.EventName)),
			HTML:    html,
			Text:    body,
			Tags:    map[string]string{"registration_id": rec.ID, "category": rec.Category()},
		}
	}
	msgs := []emailAdapter.Message{confirmation(rec.Email)}
	if rec.IsUnder18 && rec.Guardian != nil && !strings.EqualFold(rec.GuardianEmail, rec.Email) {
		msgs = append(msgs, confirmation(rec.GuardianEmail))
	}

	if _, err := deps.EmailSender.SendAll(ctx, msgs); err != nil {
		result = "failed"
		slog.Error("email_event", "event", "confirmation_failed", "registration_id", rec.ID, "error", err)
		return
	}
	slog.Info("email_event", "event", "confirmation_sent", "registration_id", rec.ID, "recipients", len(msgs))
}

func eventOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Camp"
	}
	return name
}

// markdownEscaper neutralizes markdown syntax in visitor-supplied text.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "|", `\|`,
)

// ConfirmationMarkdown renders the confirmation email body.
func ConfirmationMarkdown(rec domain.Registration, eventName string) string {
	esc := markdownEscaper.Replace
	var b strings.Builder
	fmt.Fprintf(&b, "# Thank you for registering, %s!\n\n", esc(rec.FirstName))
	fmt.Fprintf(&b, "We have received your registration for **%s**.\n\n", esc(eventOrDefault(eventName)))
	fmt.Fprintf(&b, "- Reference: `%s`\n", rec.ID)
	fmt.Fprintf(&b, "- Name: %s\n", esc(rec.FullName()))
	fmt.Fprintf(&b, "- Corps: %s\n", esc(rec.CorpsName))
	fmt.Fprintf(&b, "- Category: %s\n", rec.Category())
	fmt.Fprintf(&b, "- Emergency contact: %s (%s)\n", esc(rec.EmergencyName), esc(rec.EmergencyPhone))
	if rec.IsUnder18 && rec.Guardian != nil {
		fmt.Fprintf(&b, "- Guardian: %s %s\n", esc(rec.GuardianFirstName), esc(rec.GuardianLastName))
	}
	b.WriteString("\nIf any of these details are wrong, reply to this email and we will update them.\n")
	return b.String()
}
