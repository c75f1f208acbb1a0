package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/csrf"
)

// visitorIdle is how long a client may stay silent before its bucket is dropped.
const visitorIdle = 5 * time.Minute

// RateLimiter provides a per-client token bucket rate limiter.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	now      func() time.Time
}

type visitor struct {
	tokens   int
	refilled time.Time // start of the current refill interval
	lastSeen time.Time // last request, refused or not
}

// NewRateLimiter creates a rate limiter allowing `rate` requests per `interval`.
// PRE: rate > 0, interval > 0
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock replaces the limiter's time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Run drops idle visitors every minute until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(rl.visitors, ip)
		}
	}
}

// Allow checks if a request from the given client is allowed.
// PRE: ip is non-empty
// POST: Returns true if within rate limit, false if exceeded
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, refilled: now, lastSeen: now}
		return true
	}
	v.lastSeen = now

	// Refill only whole intervals so a steady trickle cannot starve the bucket.
	if elapsed := now.Sub(v.refilled); elapsed >= rl.interval {
		v.tokens += int(elapsed/rl.interval) * rl.rate
		if v.tokens > rl.rate {
			v.tokens = rl.rate
		}
		v.refilled = v.refilled.Add(elapsed.Truncate(rl.interval))
	}

	if v.tokens <= 0 {
		slog.Warn("rate_limit_exceeded", "ip", ip)
		return false
	}
	v.tokens--
	return true
}

// clientIP strips the port from RemoteAddr so one client maps to one bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns middleware that limits unsafe requests per client.
// GET and HEAD pass through untouched so page views are never throttled.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(max(int(limiter.interval/time.Second), 1)))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds OWASP recommended headers.
// Every asset is self-hosted, so nothing outside 'self' is allowed.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; script-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// CSRFOptions tunes CSRF protection for the deployment.
type CSRFOptions struct {
	// Secure marks the CSRF cookie Secure; set in production behind TLS.
	Secure bool
	// TrustedOrigins lists host[:port] values allowed as request origins.
	TrustedOrigins []string
	// ErrorHandler renders the rejection; nil uses the library default 403.
	ErrorHandler http.Handler
}

// CSRF returns a handler that protects form posts against CSRF attacks.
// authKey must be 32 bytes.
// JSON API requests (Content-Type: application/json) are exempted from CSRF;
// browsers cannot send that content type cross-origin without a preflight.
func CSRF(authKey []byte, opts CSRFOptions) func(http.Handler) http.Handler {
	csrfOpts := []csrf.Option{
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	}
	if len(opts.TrustedOrigins) > 0 {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins(opts.TrustedOrigins))
	}
	if opts.ErrorHandler != nil {
		csrfOpts = append(csrfOpts, csrf.ErrorHandler(opts.ErrorHandler))
	}
	csrfProtect := csrf.Protect(authKey, csrfOpts...)

	return func(next http.Handler) http.Handler {
		protected := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsJSONBody(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !opts.Secure {
				// gorilla/csrf assumes TLS and checks the Referer of plain HTTP
				// requests; local development runs without it.
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares in order (outer to inner).
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
