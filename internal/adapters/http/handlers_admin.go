package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"campreg/internal/adapters/http/middleware"
	"campreg/internal/adapters/http/perf"
	regStore "campreg/internal/adapters/storage/registration"
	"campreg/internal/application/listutil"
	"campreg/internal/application/orchestrators"
	"campreg/internal/application/projections"
)

// dashboardFilterKeys are the query parameters the dashboard filters on.
var dashboardFilterKeys = []string{"age", "gender"}

// defaultPerfWindow is the perf snapshot window when ?window= is absent.
const defaultPerfWindow = time.Hour

const noticeLoadFailed = "We couldn't load registrations right now. Please try again shortly."

type loginPage struct {
	Title    string
	Username string
	Error    string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username string `json:"username"`
}

// handleLoginPage renders the admin login form.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAdmin(r.Context()) {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, r, http.StatusOK, "login.html", &loginPage{Title: "Admin Login"})
}

// handleLogin checks credentials and starts an admin session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.AdminLoginInput
	jsonBody := isJSONBody(r)
	if jsonBody {
		var req loginRequest
		if err := strictDecode(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		input = orchestrators.AdminLoginInput{Username: req.Username, Password: req.Password}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input = orchestrators.AdminLoginInput{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}
	}

	result, err := orchestrators.ExecuteAdminLogin(r.Context(), input, orchestrators.AdminLoginDeps{
		AdminStore: s.deps.Admins,
		Metrics:    s.deps.Metrics,
		Now:        s.deps.Now,
	})
	if err != nil {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, orchestrators.ErrAdminLocked):
			status = http.StatusTooManyRequests
		case errors.Is(err, orchestrators.ErrInvalidCredentials):
		default:
			internalError(w, err)
			return
		}
		if wantsJSON(r) {
			writeJSONError(w, status, err.Error())
			return
		}
		s.renderTemplate(w, r, status, "login.html", &loginPage{
			Title: "Admin Login", Username: input.Username, Error: err.Error(),
		})
		return
	}

	token, err := s.deps.Sessions.Create(r.Context(), result.Username)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token, s.deps.Sessions.TTL(), s.cfg.IsProduction())

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, loginResponse{Username: result.Username})
		return
	}
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// handleLogout ends the admin session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.deps.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			slog.Error("store_error", "op", "delete_session", "error", err)
		}
	}
	middleware.ClearSessionCookie(w, s.cfg.IsProduction())
	slog.Info("auth_event", "event", "logout")

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

type dashboardPage struct {
	Title          string
	Result         projections.GetRegistrationListResult
	Notice         string
	PerPageOptions []int
}

// handleDashboard lists, filters and paginates registrations.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := listutil.ParseListParams(r.URL.Query(), dashboardFilterKeys)
	query := projections.GetRegistrationListQuery{
		Filter: projections.Filter{
			Search: params.Search,
			Age:    params.Get("age"),
			Gender: params.Get("gender"),
		},
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	result, err := projections.QueryGetRegistrationList(r.Context(), query, projections.GetRegistrationListDeps{
		Store: s.deps.Dashboard,
		Now:   s.deps.Now,
	})
	if err != nil {
		slog.Error("store_error", "op", "list", "error", err)
		s.deps.Metrics.IncStoreError("list")
		if wantsJSON(r) {
			writeJSONError(w, http.StatusServiceUnavailable, noticeLoadFailed)
			return
		}
		// Keep the visitor's filter so the form is not reset.
		result = projections.GetRegistrationListResult{
			Rows:   []projections.RegistrationRow{},
			Filter: projections.NormalizeFilter(query.Filter),
			Page:   listutil.NewPageInfo(1, query.PerPage, 0),
		}
		s.renderTemplate(w, r, http.StatusServiceUnavailable, "dashboard.html", &dashboardPage{
			Title: "Dashboard", Result: result, Notice: noticeLoadFailed, PerPageOptions: listutil.PerPageOptions,
		})
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, result)
		return
	}
	s.renderTemplate(w, r, http.StatusOK, "dashboard.html", &dashboardPage{
		Title: "Dashboard", Result: result, PerPageOptions: listutil.PerPageOptions,
	})
}

type detailPage struct {
	Title    string
	ID       string
	NotFound bool
	Result   projections.GetRegistrationDetailResult
}

// handleRegistrationDetail shows one registration, or a not-found state.
func (s *Server) handleRegistrationDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := projections.QueryGetRegistrationDetail(r.Context(),
		projections.GetRegistrationDetailQuery{ID: id},
		projections.GetRegistrationDetailDeps{Store: s.deps.Dashboard, Now: s.deps.Now})

	switch {
	case err == nil:
	case errors.Is(err, regStore.ErrNotFound):
		if wantsJSON(r) {
			writeJSONError(w, http.StatusNotFound, "registration not found")
			return
		}
		s.renderTemplate(w, r, http.StatusNotFound, "detail.html", &detailPage{
			Title: "Registration not found", ID: id, NotFound: true,
		})
		return
	default:
		slog.Error("store_error", "op", "find", "registration_id", id, "error", err)
		s.deps.Metrics.IncStoreError("find")
		s.respondError(w, r, http.StatusServiceUnavailable, "Unavailable", noticeLoadFailed, "/admin/dashboard")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, result)
		return
	}
	s.renderTemplate(w, r, http.StatusOK, "detail.html", &detailPage{
		Title: result.Registration.FirstName + " " + result.Registration.LastName, ID: id, Result: result,
	})
}

// handlePerf returns the request and query timing snapshot.
// ?window= takes a Go duration such as 15m; the default is one hour.
// Entries carry wall-clock timestamps, so the window ignores deps.Now.
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.deps.Perf == nil {
		writeJSONError(w, http.StatusNotFound, "perf collection disabled")
		return
	}
	window := defaultPerfWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, s.deps.Perf.Snapshot(time.Now().Add(-window), perf.DefaultTopN))
}
