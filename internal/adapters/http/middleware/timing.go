package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"campreg/internal/adapters/http/perf"
)

// DefaultSlowRequest is the default threshold for slow request warnings.
const DefaultSlowRequest = 500 * time.Millisecond

// requestIDCounter is an atomic counter for request IDs.
var requestIDCounter uint64

// RequestObserver receives one observation per finished request.
type RequestObserver interface {
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// TimingOptions configures the Timing middleware. The zero value logs with
// DefaultSlowRequest and labels requests by raw path.
type TimingOptions struct {
	Collector *perf.Collector
	Observer  RequestObserver
	Threshold time.Duration
	// Route maps a request to a bounded label such as its mux pattern.
	Route func(*http.Request) string
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// statusWriterPool reduces allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// Timing returns middleware that logs request duration.
// Requests to /static/ are excluded.
// Normal requests log at DEBUG; slow requests (at or above threshold) log at WARN.
// Entries go to the perf collector and observer when they are set.
func Timing(opts TimingOptions) func(http.Handler) http.Handler {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultSlowRequest
	}
	route := opts.Route
	if route == nil {
		route = func(r *http.Request) string { return r.URL.Path }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			if strings.HasPrefix(path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID := atomic.AddUint64(&requestIDCounter, 1)
			label := route(r)

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			defer func() {
				elapsed := time.Since(start)
				durationMs := float64(elapsed.Microseconds()) / 1000.0

				attrs := []any{
					"request_id", reqID,
					"method", r.Method,
					"path", path,
					"route", label,
					"status", sw.status,
					"duration_ms", durationMs,
				}
				if elapsed >= threshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}

				if opts.Observer != nil {
					opts.Observer.ObserveHTTPRequest(label, sw.status, elapsed)
				}
				if opts.Collector != nil {
					opts.Collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       perfPath(r.Method, label),
						StatusCode: sw.status,
						DurationMs: durationMs,
						Timestamp:  start,
					})
				}

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// perfPath prefixes the method unless the label already carries one, as mux
// patterns like "GET /register" do.
func perfPath(method, label string) string {
	if strings.HasPrefix(label, method+" ") {
		return label
	}
	return method + " " + label
}
