package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"campreg/internal/adapters/http/middleware"
	"campreg/internal/adapters/markdown"
	"campreg/internal/application/projections"
	"campreg/internal/domain/registration"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "templates/layout.html"

// pages maps a page file name (e.g. "register.html") to its parsed layout+page set.
type pages map[string]*template.Template

// relationshipLabels are the display names of guardian relationships.
var relationshipLabels = map[string]string{
	registration.RelationshipParent:      "Parent",
	registration.RelationshipGuardian:    "Legal Guardian",
	registration.RelationshipGrandparent: "Grandparent",
	registration.RelationshipOther:       "Other",
}

// baseFuncs are bound at parse time; request-scoped entries are replaced per render.
func baseFuncs(eventName string) template.FuncMap {
	return template.FuncMap{
		"eventName": func() string { return eventName },
		"csrfField": func() template.HTML { return "" },
		"isAdmin":   func() bool { return false },
		"markdown":  markdown.Template,
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
		"capitalize": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"relationship": func(s string) string {
			if l, ok := relationshipLabels[s]; ok {
				return l
			}
			return s
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("2 Jan 2006 15:04 MST")
		},
		"orNone": func(s string) string {
			if strings.TrimSpace(s) == "" {
				return "None"
			}
			return s
		},
		"pageURL": pageURL,
	}
}

// parsePages parses every page template together with the layout.
// POST: every file under templates/ except the layout has an entry
func parsePages(eventName string) (pages, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	out := make(pages, len(files))
	for _, f := range files {
		if f == layoutTemplate {
			continue
		}
		tpl, err := template.New(path.Base(layoutTemplate)).
			Funcs(baseFuncs(eventName)).
			ParseFS(templateFS, layoutTemplate, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		out[path.Base(f)] = tpl
	}
	return out, nil
}

// pageURL builds the dashboard query string for a page of the current filter.
func pageURL(f projections.Filter, page, perPage int) template.URL {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Age != "" && f.Age != projections.AgeAll {
		q.Set("age", f.Age)
	}
	if f.Gender != "" && f.Gender != projections.GenderAll {
		q.Set("gender", f.Gender)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return template.URL("?" + q.Encode())
}

// renderTemplate executes the named page inside the layout with status.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	base, ok := s.pages[name]
	if !ok {
		internalError(w, fmt.Errorf("unknown template %q", name))
		return
	}
	tpl, err := base.Clone()
	if err != nil {
		internalError(w, err)
		return
	}
	admin := middleware.IsAdmin(r.Context())
	tpl.Funcs(template.FuncMap{
		"csrfField": func() template.HTML { return csrf.TemplateField(r) },
		"isAdmin":   func() bool { return admin },
	})

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Handlers and the admin gate share one content negotiation rule.
var (
	wantsJSON  = middleware.WantsJSON
	isJSONBody = middleware.IsJSONBody
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error())
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
