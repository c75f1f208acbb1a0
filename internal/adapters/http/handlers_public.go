package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"campreg/internal/config"
)

// healthTimeout bounds the readiness check.
const healthTimeout = 2 * time.Second

type landingPage struct {
	Title string
	Event config.Event
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, r, http.StatusOK, "landing.html", &landingPage{Title: "Welcome", Event: s.cfg.Event})
}

type notFoundPage struct {
	Title string
	Path  string
}

// handleNotFound serves every unmatched path.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	s.renderTemplate(w, r, http.StatusNotFound, "not_found.html", &notFoundPage{Title: "Page not found", Path: r.URL.Path})
}

type errorPage struct {
	Title   string
	Message string
	Back    string
}

// respondError renders a short error page, or a JSON error for API clients.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, title, message, back string) {
	if wantsJSON(r) {
		writeJSONError(w, status, message)
		return
	}
	s.renderTemplate(w, r, status, "error.html", &errorPage{Title: title, Message: message, Back: back})
}

// handleCSRFFailure is the rejection page for forms with a missing or stale token.
func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	slog.Warn("csrf_rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	back := r.URL.Path
	if back == "/admin/logout" {
		back = "/admin/dashboard"
	}
	s.respondError(w, r, http.StatusForbidden, "Form expired",
		"This form is no longer valid. Go back, reload the page and try again.", back)
}

type healthBody struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			slog.Error("health_check_failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}
