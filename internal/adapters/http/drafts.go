package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"campreg/internal/domain/wizard"
)

// DraftCookieName identifies a visitor's in-progress registration.
const DraftCookieName = "camp_draft"

// DefaultDraftTTL is how long an untouched draft survives.
const DefaultDraftTTL = 2 * time.Hour

// Draft is one visitor's wizard. Hold it only between Acquire and Release.
type Draft struct {
	mu       sync.Mutex
	token    string
	Wizard   *wizard.Controller
	lastSeen time.Time // guarded by DraftRegistry.mu
}

// Token returns the cookie value naming this draft.
func (d *Draft) Token() string { return d.token }

// Release unlocks the draft for the next request.
func (d *Draft) Release() { d.mu.Unlock() }

// DraftRegistry holds wizards keyed by cookie token.
// INVARIANT: at most one request operates on a given draft at a time
type DraftRegistry struct {
	mu        sync.Mutex
	drafts    map[string]*Draft
	ttl       time.Duration
	now       func() time.Time
	newWizard func() *wizard.Controller
}

// NewDraftRegistry creates an empty registry.
// PRE: newWizard returns a fresh controller on each call
func NewDraftRegistry(ttl time.Duration, newWizard func() *wizard.Controller) *DraftRegistry {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftRegistry{
		drafts:    make(map[string]*Draft),
		ttl:       ttl,
		now:       time.Now,
		newWizard: newWizard,
	}
}

// Acquire returns the locked draft for token, starting a new one when the
// token is empty, unknown or expired.
// POST: the returned draft is locked; created reports whether it is new
func (r *DraftRegistry) Acquire(token string) (d *Draft, created bool) {
	r.mu.Lock()
	now := r.now()
	d, ok := r.drafts[token]
	if ok && now.Sub(d.lastSeen) > r.ttl {
		delete(r.drafts, token)
		ok = false
	}
	if !ok {
		d = &Draft{token: uuid.NewString(), Wizard: r.newWizard()}
		r.drafts[d.token] = d
		created = true
	}
	d.lastSeen = now
	r.mu.Unlock()

	d.mu.Lock()
	return d, created
}

// Lookup returns the locked draft for token without creating one.
// POST: a found draft's idle timer is reset
func (r *DraftRegistry) Lookup(token string) (*Draft, bool) {
	r.mu.Lock()
	now := r.now()
	d, ok := r.drafts[token]
	if ok && now.Sub(d.lastSeen) > r.ttl {
		delete(r.drafts, token)
		ok = false
	}
	if ok {
		d.lastSeen = now
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	d.mu.Lock()
	return d, true
}

// Discard forgets a draft. A request still holding it keeps its copy.
func (r *DraftRegistry) Discard(token string) {
	r.mu.Lock()
	delete(r.drafts, token)
	r.mu.Unlock()
}

// Len returns the number of open drafts.
func (r *DraftRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

// Sweep evicts drafts idle longer than the TTL and returns how many went.
func (r *DraftRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	evicted := 0
	for token, d := range r.drafts {
		if now.Sub(d.lastSeen) > r.ttl {
			delete(r.drafts, token)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on an interval until ctx is cancelled.
func (r *DraftRegistry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func setDraftCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearDraftCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func draftToken(r *http.Request) string {
	if c, err := r.Cookie(DraftCookieName); err == nil {
		return c.Value
	}
	return ""
}
