package web

import (
	"net/http"

	"campreg/internal/adapters/http/middleware"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	// Public
	mux.HandleFunc("GET /{$}", s.handleLanding)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegisterAction)
	mux.HandleFunc("GET /confirmation", s.handleConfirmation)

	// Admin gate
	mux.HandleFunc("GET /admin/login", s.handleLoginPage)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("POST /admin/logout", s.handleLogout)
	mux.Handle("GET /admin/{$}", admin(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
	}))
	mux.Handle("GET /admin/dashboard", admin(s.handleDashboard))
	mux.Handle("GET /admin/registration/{id}", admin(s.handleRegistrationDetail))
	mux.Handle("GET /admin/perf", admin(s.handlePerf))

	// Operations
	mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	if dir := s.cfg.StaticDir; dir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	}

	mux.HandleFunc("/", s.handleNotFound)
}
