package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"campreg/internal/adapters/storage/blob"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "admin_session"

// SessionsBlob is the blob name holding the persisted admin sessions.
const SessionsBlob = "admin_sessions"

// DefaultSessionTTL is how long an admin session stays valid.
const DefaultSessionTTL = 12 * time.Hour

// Session represents an authenticated admin session.
type Session struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStore keeps admin sessions in memory and writes every change
// through to a blob so they survive restarts.
// INVARIANT: the blob holds exactly the sessions in memory after each successful write
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	blobs    blob.Store
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store. blobs may be nil for a memory-only store.
// PRE: ttl > 0 (non-positive falls back to DefaultSessionTTL)
func NewSessionStore(blobs blob.Store, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]Session),
		blobs:    blobs,
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the session lifetime.
func (ss *SessionStore) TTL() time.Duration {
	return ss.ttl
}

// Load replaces the in-memory sessions with the persisted ones, dropping expired entries.
// A missing blob is an empty set.
// POST: Len() equals the number of unexpired persisted sessions
func (ss *SessionStore) Load(ctx context.Context) error {
	if ss.blobs == nil {
		return nil
	}
	raw, err := ss.blobs.Get(ctx, SessionsBlob)
	if errors.Is(err, blob.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	loaded := make(map[string]Session)
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			return fmt.Errorf("decode sessions: %w", err)
		}
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	for token, s := range loaded {
		if ss.expired(s, now) {
			delete(loaded, token)
		}
	}
	ss.sessions = loaded
	return nil
}

// Create stores a new session and returns the token.
// PRE: username is non-empty
// POST: Session is stored and persisted, token is returned
func (ss *SessionStore) Create(ctx context.Context, username string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = Session{Username: username, CreatedAt: ss.now().UTC()}
	if err := ss.persistLocked(ctx); err != nil {
		delete(ss.sessions, token)
		return "", err
	}
	return token, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: Returns session if known and not expired; expired sessions are evicted from memory
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	session, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.expired(session, ss.now()) {
		ss.mu.Lock()
		delete(ss.sessions, token)
		ss.mu.Unlock()
		return Session{}, false
	}
	return session, true
}

// Delete removes a session by token.
// POST: Session with given token is removed from memory and the blob
func (ss *SessionStore) Delete(ctx context.Context, token string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.sessions[token]; !ok {
		return nil
	}
	delete(ss.sessions, token)
	return ss.persistLocked(ctx)
}

// Len returns the number of sessions held in memory.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

func (ss *SessionStore) expired(s Session, now time.Time) bool {
	return now.Sub(s.CreatedAt) > ss.ttl
}

// persistLocked writes the session map; callers hold ss.mu.
func (ss *SessionStore) persistLocked(ctx context.Context) error {
	if ss.blobs == nil {
		return nil
	}
	raw, err := json.Marshal(ss.sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := ss.blobs.Put(ctx, SessionsBlob, string(raw)); err != nil {
		slog.Error("store_error", "op", "persist_sessions", "error", err)
		return fmt.Errorf("persist sessions: %w", err)
	}
	return nil
}

// SessionCookieName is the admin session cookie.
const SessionCookieName = "camp_admin_session"

// LoginPath is where unauthenticated admin page requests are sent.
const LoginPath = "/admin/login"

// Auth returns middleware that extracts the session from the cookie and sets it in context.
// It does NOT block unauthenticated requests; use RequireAdmin for that.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				if session, ok := sessions.Get(cookie.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin blocks requests without an admin session.
// Browsers are redirected to the login page; JSON clients get 401.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			if WantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// IsAdmin reports whether the request context carries an admin session.
func IsAdmin(ctx context.Context) bool {
	_, ok := GetSessionFromContext(ctx)
	return ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
