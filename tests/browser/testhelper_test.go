package browser_test

import (
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	"campreg/internal/adapters/email"
	web "campreg/internal/adapters/http"
	"campreg/internal/adapters/http/middleware"
	"campreg/internal/adapters/http/perf"
	"campreg/internal/adapters/metrics"
	"campreg/internal/adapters/storage"
	adminStore "campreg/internal/adapters/storage/admin"
	"campreg/internal/adapters/storage/blob"
	regStore "campreg/internal/adapters/storage/registration"
	"campreg/internal/config"
	adminDomain "campreg/internal/domain/admin"
)

const (
	adminUsername = "admin"
	adminPassword = "TestPass123!long"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Store   *regStore.LocalStore
	Mail    *email.NoopSender
}

// newTestApp creates a fully wired app with a temp SQLite DB and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := storage.MigrateDB(db, dbPath); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	blobs := blob.NewSQLiteStore(db)
	store := regStore.NewLocalStore(blobs)
	mail := email.NewNoopSender()

	hash, err := adminDomain.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("failed to hash admin password: %v", err)
	}
	admins, err := adminStore.NewMemoryStore(adminDomain.Admin{Username: adminUsername, PasswordHash: hash})
	if err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg := config.Config{
		Env:            config.EnvDevelopment,
		CSRFKey:        strings.Repeat("b", 32),
		StaticDir:      filepath.Join(findProjectRoot(t), "static"),
		AdminUsername:  adminUsername,
		RateLimit:      1000,
		SlowRequest:    time.Second,
		DraftTTL:       time.Hour,
		SessionTTL:     time.Hour,
		EmailFrom:      "Camp <camp@example.org>",
		TrustedOrigins: []string{fmt.Sprintf("127.0.0.1:%d", port), fmt.Sprintf("localhost:%d", port)},
		Event:          config.Event{Name: "Summer Camp", Dates: "1-5 Aug", Location: "Lakeside"},
	}

	server, err := web.NewServer(web.Deps{
		Config:        cfg,
		Registrations: store,
		Dashboard:     store,
		Admins:        admins,
		Sessions:      middleware.NewSessionStore(blobs, cfg.SessionTTL),
		EmailSender:   mail,
		Metrics:       metrics.New(),
		Perf:          perf.NewCollector(perf.DefaultRingSize),
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: server.Handler(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skipf("Playwright unavailable: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		t.Skipf("Chromium unavailable: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Store:   store,
		Mail:    mail,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// login navigates to the login page and logs in as admin.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/admin/login"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=username]").Fill(adminUsername); err != nil {
		t.Fatalf("failed to fill username: %v", err)
	}
	if err := page.Locator("input[name=password]").Fill(adminPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("main button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+"/admin/dashboard", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to dashboard: %v", err)
	}
}

// fill sets each named input, select or textarea on the current step.
func fill(t *testing.T, page playwright.Page, fields map[string]string) {
	t.Helper()
	for name, value := range fields {
		loc := page.Locator(fmt.Sprintf("[name=%s]", name))
		tag, err := loc.Evaluate("el => el.tagName", nil)
		if err != nil {
			t.Fatalf("field %s: %v", name, err)
		}
		if tag == "SELECT" {
			if _, err := loc.SelectOption(playwright.SelectOptionValues{Values: playwright.StringSlice(value)}); err != nil {
				t.Fatalf("select %s: %v", name, err)
			}
			continue
		}
		if err := loc.Fill(value); err != nil {
			t.Fatalf("fill %s: %v", name, err)
		}
	}
}

// clickAction presses the wizard button with the given action value.
func clickAction(t *testing.T, page playwright.Page, action string) {
	t.Helper()
	if err := page.Locator(fmt.Sprintf("button[name=action][value=%s]", action)).Click(); err != nil {
		t.Fatalf("click %s: %v", action, err)
	}
}

// heading returns the current step heading.
func heading(t *testing.T, page playwright.Page) string {
	t.Helper()
	text, err := page.Locator("form.wizard h2").TextContent()
	if err != nil {
		t.Fatalf("read heading: %v", err)
	}
	return strings.TrimSpace(text)
}

// findProjectRoot walks up from the working directory to find the project root (contains go.mod).
func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find project root (go.mod) from working directory")
		}
		dir = parent
	}
}
