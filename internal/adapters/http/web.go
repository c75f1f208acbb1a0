package web

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"campreg/internal/adapters/email"
	"campreg/internal/adapters/http/middleware"
	"campreg/internal/adapters/http/perf"
	"campreg/internal/adapters/metrics"
	adminStore "campreg/internal/adapters/storage/admin"
	"campreg/internal/application/projections"
	"campreg/internal/config"
	"campreg/internal/domain/wizard"
)

// sweepInterval is how often idle drafts and rate-limit buckets are dropped.
const sweepInterval = time.Minute

// Deps holds everything the HTTP layer needs. Nothing is read from globals.
type Deps struct {
	Config config.Config

	// Registrations receives wizard submissions.
	Registrations wizard.Appender
	// Dashboard is the read side shown to admins; it may be a remote collection.
	Dashboard projections.RegistrationReader
	Admins    adminStore.Store
	Sessions  *middleware.SessionStore

	// EmailSender may be nil to disable confirmation emails.
	EmailSender email.Sender
	Metrics     *metrics.Metrics
	Perf        *perf.Collector

	// Health reports readiness for /healthz; nil always reports ok.
	Health func(ctx context.Context) error
	// Now and NewWizard are overridable for tests.
	Now       func() time.Time
	NewWizard func() *wizard.Controller
}

// Server is the camp registration web application.
type Server struct {
	deps    Deps
	cfg     config.Config
	pages   pages
	drafts  *DraftRegistry
	limiter *middleware.RateLimiter
	handler http.Handler
}

// NewServer parses templates and wires routes and middleware.
// PRE: deps.Registrations, deps.Dashboard, deps.Admins and deps.Sessions are set
// POST: Handler() is ready to serve; call Run to start background sweeps
func NewServer(deps Deps) (*Server, error) {
	if deps.Registrations == nil || deps.Dashboard == nil || deps.Admins == nil || deps.Sessions == nil {
		return nil, errors.New("web: registrations, dashboard, admins and sessions are required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewWizard == nil {
		now := deps.Now
		deps.NewWizard = func() *wizard.Controller { return wizard.New(wizard.WithClock(now)) }
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	p, err := parsePages(deps.Config.Event.Name)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	s := &Server{
		deps:    deps,
		cfg:     deps.Config,
		pages:   p,
		drafts:  NewDraftRegistry(deps.Config.DraftTTL, deps.NewWizard),
		limiter: middleware.NewRateLimiter(max(deps.Config.RateLimit, 1), time.Second).WithClock(deps.Now),
	}
	s.drafts.now = deps.Now

	deps.Metrics.RegisterGaugeFunc("camp_open_drafts", "Wizard drafts held in memory",
		func() float64 { return float64(s.drafts.Len()) })
	deps.Metrics.RegisterGaugeFunc("camp_admin_sessions", "Admin sessions held in memory",
		func() float64 { return float64(deps.Sessions.Len()) })

	key, err := csrfKey(deps.Config)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	s.handler = middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(key, middleware.CSRFOptions{
			Secure:         deps.Config.IsProduction(),
			TrustedOrigins: deps.Config.TrustedOrigins,
			ErrorHandler:   http.HandlerFunc(s.handleCSRFFailure),
		}),
		middleware.Auth(deps.Sessions),
		middleware.RateLimit(s.limiter),
		middleware.Timing(middleware.TimingOptions{
			Collector: deps.Perf,
			Observer:  deps.Metrics,
			Threshold: deps.Config.SlowRequest,
			Route:     routeLabel(mux),
		}),
	)
	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Drafts exposes the draft registry for inspection.
func (s *Server) Drafts() *DraftRegistry {
	return s.drafts
}

// Run sweeps idle drafts and rate-limit buckets until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	go s.limiter.Run(ctx)
	s.drafts.Run(ctx, sweepInterval)
}

// routeLabel maps a request to the mux pattern that will serve it, keeping
// metric label cardinality bounded.
func routeLabel(mux *http.ServeMux) func(*http.Request) string {
	return func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}
}

// csrfKey returns the configured key, or a random per-process key in development.
func csrfKey(cfg config.Config) ([]byte, error) {
	if cfg.CSRFKey != "" {
		return []byte(cfg.CSRFKey), nil
	}
	if cfg.IsProduction() {
		return nil, config.ErrMissingCSRFKey
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("csrf_key_generated", "reason", "CAMP_CSRF_KEY unset; forms will not survive a restart")
	return key, nil
}
