package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campreg/internal/adapters/storage/blob"
)

type memBlobs struct {
	values map[string]string
	putErr error
	puts   int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{values: make(map[string]string)}
}

func (m *memBlobs) Get(_ context.Context, name string) (string, error) {
	v, ok := m.values[name]
	if !ok {
		return "", blob.ErrNotFound
	}
	return v, nil
}

func (m *memBlobs) Put(_ context.Context, name, value string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.values[name] = value
	return nil
}

func TestSessionStore_CreateGetDelete(t *testing.T) {
	blobs := newMemBlobs()
	ss := NewSessionStore(blobs, time.Hour)
	ctx := context.Background()

	token, err := ss.Create(ctx, "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	s, ok := ss.Get(token)
	if !ok || s.Username != "admin" {
		t.Fatalf("Get = %+v, %v", s, ok)
	}

	var persisted map[string]Session
	if err := json.Unmarshal([]byte(blobs.values[SessionsBlob]), &persisted); err != nil {
		t.Fatalf("persisted blob: %v", err)
	}
	if _, ok := persisted[token]; !ok {
		t.Error("session not written through to the blob")
	}

	if err := ss.Delete(ctx, token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := ss.Get(token); ok {
		t.Error("session still valid after Delete")
	}
	if blobs.values[SessionsBlob] != "{}" {
		t.Errorf("blob after delete = %q, want {}", blobs.values[SessionsBlob])
	}
}

func TestSessionStore_DeleteUnknownSkipsWrite(t *testing.T) {
	blobs := newMemBlobs()
	ss := NewSessionStore(blobs, time.Hour)
	if err := ss.Delete(context.Background(), "missing"); err != nil {
		t.Fatal(err)
	}
	if blobs.puts != 0 {
		t.Errorf("puts = %d, want 0", blobs.puts)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ss := NewSessionStore(nil, time.Hour)
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	ss.now = func() time.Time { return now }

	token, err := ss.Create(context.Background(), "admin")
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour + time.Second)
	if _, ok := ss.Get(token); ok {
		t.Error("expired session accepted")
	}
	if ss.Len() != 0 {
		t.Errorf("Len = %d, want 0 after expiry eviction", ss.Len())
	}
}

func TestSessionStore_LoadSurvivesRestart(t *testing.T) {
	blobs := newMemBlobs()
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	first := NewSessionStore(blobs, time.Hour)
	first.now = func() time.Time { return now }
	keep, _ := first.Create(ctx, "admin")

	first.now = func() time.Time { return now.Add(-2 * time.Hour) }
	stale, _ := first.Create(ctx, "admin")

	second := NewSessionStore(blobs, time.Hour)
	second.now = func() time.Time { return now }
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := second.Get(keep); !ok {
		t.Error("live session lost across restart")
	}
	if _, ok := second.Get(stale); ok {
		t.Error("expired session resurrected by Load")
	}
	if second.Len() != 1 {
		t.Errorf("Len = %d, want 1", second.Len())
	}
}

func TestSessionStore_LoadMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	if err := NewSessionStore(newMemBlobs(), 0).Load(ctx); err != nil {
		t.Errorf("missing blob: %v, want nil", err)
	}

	blobs := newMemBlobs()
	blobs.values[SessionsBlob] = "{not json"
	if err := NewSessionStore(blobs, 0).Load(ctx); err == nil {
		t.Error("corrupt blob: want error")
	}
}

func TestSessionStore_CreatePersistFailure(t *testing.T) {
	blobs := newMemBlobs()
	blobs.putErr = errors.New("disk full")
	ss := NewSessionStore(blobs, time.Hour)

	if _, err := ss.Create(context.Background(), "admin"); !errors.Is(err, blobs.putErr) {
		t.Fatalf("err = %v, want wrapped disk full", err)
	}
	if ss.Len() != 0 {
		t.Errorf("Len = %d, want 0 after failed persist", ss.Len())
	}
}

func TestNewSessionStore_DefaultTTL(t *testing.T) {
	if got := NewSessionStore(nil, 0).TTL(); got != DefaultSessionTTL {
		t.Errorf("TTL = %v, want %v", got, DefaultSessionTTL)
	}
}

func TestAuthAndRequireAdmin(t *testing.T) {
	ss := NewSessionStore(nil, time.Hour)
	token, _ := ss.Create(context.Background(), "admin")
	protected := Auth(ss)(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := GetSessionFromContext(r.Context())
		w.Write([]byte(s.Username))
	})))

	tests := []struct {
		name     string
		cookie   string
		accept   string
		ctype    string
		wantCode int
		wantLoc  string
	}{
		{"html without session redirects", "", "text/html", "", http.StatusSeeOther, LoginPath},
		{"json without session is 401", "", "application/json", "", http.StatusUnauthorized, ""},
		{"json body without session is 401", "", "", "application/json", http.StatusUnauthorized, ""},
		{"browser accept wins over json", "", "text/html, application/json", "", http.StatusSeeOther, LoginPath},
		{"unknown token redirects", "bogus", "", "", http.StatusSeeOther, LoginPath},
		{"valid session passes", token, "text/html", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/dashboard", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantLoc != "" && rr.Header().Get("Location") != tt.wantLoc {
				t.Errorf("Location = %q, want %q", rr.Header().Get("Location"), tt.wantLoc)
			}
			if tt.wantCode == http.StatusOK && rr.Body.String() != "admin" {
				t.Errorf("body = %q, want admin", rr.Body.String())
			}
		})
	}
}

func TestSessionCookies(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok", 12*time.Hour, true)
	ClearSessionCookie(rr, true)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("cookies = %d, want 2", len(cookies))
	}
	set, cleared := cookies[0], cookies[1]
	if set.Name != SessionCookieName || set.Value != "tok" || set.MaxAge != 43200 || !set.HttpOnly || !set.Secure {
		t.Errorf("set cookie = %+v", set)
	}
	if cleared.MaxAge >= 0 {
		t.Errorf("cleared MaxAge = %d, want negative", cleared.MaxAge)
	}
}

func TestIsAdmin(t *testing.T) {
	if IsAdmin(context.Background()) {
		t.Error("empty context reported admin")
	}
	ctx := ContextWithSession(context.Background(), Session{Username: "admin"})
	if !IsAdmin(ctx) {
		t.Error("session context not reported admin")
	}
}
