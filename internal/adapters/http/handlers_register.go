package web

import (
	"errors"
	"net/http"

	"campreg/internal/application/orchestrators"
	"campreg/internal/domain/wizard"
)

// Notices shown above the wizard.
const (
	noticeIncomplete  = "Please fill all required fields"
	noticeStoreFailed = "We couldn't save your registration. Your answers are kept; please try again."
)

// Wizard actions accepted by POST /register.
const (
	actionNext   = "next"
	actionBack   = "back"
	actionSubmit = "submit"
	actionSave   = "" // JSON only: bind fields without moving
)

// stepView is one entry of the progress indicator.
type stepView struct {
	Number  int    `json:"number"`
	Label   string `json:"label"`
	Current bool   `json:"current"`
	Done    bool   `json:"done"`
	Skipped bool   `json:"skipped"`
}

// wizardView is the wizard state as rendered to HTML and returned as JSON.
type wizardView struct {
	Step           int         `json:"step"`
	StepLabel      string      `json:"stepLabel"`
	Steps          []stepView  `json:"steps"`
	IsUnder18      bool        `json:"isUnder18"`
	Errors         []string    `json:"errors"`
	Notice         string      `json:"notice,omitempty"`
	Form           wizard.Form `json:"form"`
	Submitted      bool        `json:"submitted"`
	RegistrationID string      `json:"registrationId,omitempty"`
}

// HasError reports whether field failed validation on the current step.
func (v wizardView) HasError(field string) bool {
	for _, e := range v.Errors {
		if e == field {
			return true
		}
	}
	return false
}

func newWizardView(c *wizard.Controller, notice string) wizardView {
	step := c.Step()
	steps := make([]stepView, 0, wizard.TotalSteps)
	for _, st := range wizard.Steps() {
		steps = append(steps, stepView{
			Number:  int(st),
			Label:   st.Label(),
			Current: st == step,
			Done:    st < step,
			Skipped: st == wizard.StepGuardian && step > wizard.StepGuardian && !c.IsUnder18(),
		})
	}
	v := wizardView{
		Step:      int(step),
		StepLabel: step.Label(),
		Steps:     steps,
		IsUnder18: c.IsUnder18(),
		Errors:    c.Errors().Names(),
		Notice:    notice,
		Form:      c.Form(),
		Submitted: c.Submitted(),
	}
	if rec, ok := c.Registration(); ok {
		v.RegistrationID = rec.ID
	}
	return v
}

type registerPage struct {
	Title  string
	Wizard wizardView
}

// registerRequest is the JSON form of a wizard action.
type registerRequest struct {
	Action string            `json:"action"`
	Fields map[string]string `json:"fields"`
}

// handleRegisterPage renders the current step of the visitor's draft.
// A visitor without a draft sees an unsaved first step; the draft is only
// opened by the first POST, which is rate limited.
func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	d, ok := s.drafts.Lookup(draftToken(r))
	if !ok {
		s.respondWizard(w, r, http.StatusOK, newWizardView(s.deps.NewWizard(), ""))
		return
	}
	defer d.Release()

	if d.Wizard.Submitted() && !wantsJSON(r) {
		http.Redirect(w, r, "/confirmation", http.StatusSeeOther)
		return
	}
	s.respondWizard(w, r, http.StatusOK, newWizardView(d.Wizard, ""))
}

// handleRegisterAction applies next, back or submit to the visitor's draft.
func (s *Server) handleRegisterAction(w http.ResponseWriter, r *http.Request) {
	var (
		action string
		fields map[string]string
		isJSON = isJSONBody(r)
	)
	if isJSON {
		var req registerRequest
		if err := strictDecode(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		action, fields = req.Action, req.Fields
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		action = r.PostFormValue("action")
		if action == actionSave {
			action = actionNext
		}
	}
	switch action {
	case actionNext, actionBack, actionSubmit, actionSave:
	default:
		s.respondError(w, r, http.StatusBadRequest, "Unknown action", "That button does not do anything.", "/register")
		return
	}

	d, created := s.drafts.Acquire(draftToken(r))
	defer d.Release()
	if created {
		setDraftCookie(w, d.Token(), s.drafts.ttl, s.cfg.IsProduction())
	}
	c := d.Wizard

	if c.Submitted() {
		if wantsJSON(r) {
			writeJSON(w, http.StatusConflict, newWizardView(c, "This registration was already submitted."))
			return
		}
		http.Redirect(w, r, "/confirmation", http.StatusSeeOther)
		return
	}

	// A browser posts every field of the step; a JSON client may send only
	// some, and the rest keep their current values.
	get := r.PostFormValue
	if isJSON {
		get = mergeFields(c.Form(), fields)
	}
	if err := c.Bind(c.Step(), get); err != nil {
		internalError(w, err)
		return
	}

	switch action {
	case actionSave:
		s.respondWizard(w, r, http.StatusOK, newWizardView(c, ""))

	case actionBack:
		if err := c.Retreat(); err != nil {
			internalError(w, err)
			return
		}
		s.respondWizard(w, r, http.StatusOK, newWizardView(c, ""))

	case actionNext:
		step := c.Step()
		if err := c.Advance(); err != nil {
			if errors.Is(err, wizard.ErrIncomplete) {
				s.deps.Metrics.IncStepRejected(step.Label())
				s.respondWizard(w, r, http.StatusUnprocessableEntity, newWizardView(c, noticeIncomplete))
				return
			}
			internalError(w, err)
			return
		}
		s.respondWizard(w, r, http.StatusOK, newWizardView(c, ""))

	case actionSubmit:
		s.submit(w, r, d)
	}
}

// mergeFields reads sent values first and falls back to the current form.
func mergeFields(form wizard.Form, sent map[string]string) func(string) string {
	return func(field string) string {
		if v, ok := sent[field]; ok {
			return v
		}
		return form.Get(field)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, d *Draft) {
	c := d.Wizard
	if c.Step() != wizard.StepReview {
		s.respondWizard(w, r, http.StatusConflict, newWizardView(c, "Finish the earlier steps first."))
		return
	}

	_, err := orchestrators.ExecuteSubmitRegistration(r.Context(),
		orchestrators.SubmitRegistrationInput{Wizard: c},
		orchestrators.SubmitRegistrationDeps{
			Store:       s.deps.Registrations,
			EmailSender: s.deps.EmailSender,
			Metrics:     s.deps.Metrics,
			EventName:   s.cfg.Event.Name,
		})
	switch {
	case err == nil:
	case errors.Is(err, wizard.ErrIncomplete):
		s.respondWizard(w, r, http.StatusUnprocessableEntity, newWizardView(c, noticeIncomplete))
		return
	default:
		s.respondWizard(w, r, http.StatusServiceUnavailable, newWizardView(c, noticeStoreFailed))
		return
	}

	if wantsJSON(r) {
		view := newWizardView(c, "")
		s.drafts.Discard(d.Token())
		clearDraftCookie(w, s.cfg.IsProduction())
		writeJSON(w, http.StatusOK, view)
		return
	}
	http.Redirect(w, r, "/confirmation", http.StatusSeeOther)
}

func (s *Server) respondWizard(w http.ResponseWriter, r *http.Request, status int, view wizardView) {
	if wantsJSON(r) {
		writeJSON(w, status, view)
		return
	}
	s.renderTemplate(w, r, status, "register.html", &registerPage{Title: "Register", Wizard: view})
}

type confirmationPage struct {
	Title     string
	Name      string
	Reference string
}

// handleConfirmation shows the thank-you page once and closes the draft.
func (s *Server) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	page := &confirmationPage{Title: "Registration Complete"}
	token := draftToken(r)
	if d, ok := s.drafts.Lookup(token); ok {
		if rec, done := d.Wizard.Registration(); done {
			page.Name = rec.FirstName
			page.Reference = rec.ID
			s.drafts.Discard(token)
			clearDraftCookie(w, s.cfg.IsProduction())
		}
		d.Release()
	}
	s.renderTemplate(w, r, http.StatusOK, "confirmation.html", page)
}
