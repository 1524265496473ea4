package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/apperr"
)

// Recover turns a panic in next into a classified error response. The panic
// value is wrapped in an apperr.DeferredError so tagged errors raised via
// panic keep their status. The stack is logged, never sent.
func Recover(opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				o.logger.ErrorContext(r.Context(), "handler panic",
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				writeError(w, r, apperr.Defer(v), o)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID copies the inbound X-Request-Id header into the request
// context for logs, audit events and error bodies.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(RequestIDHeader); id != "" {
				r = r.WithContext(authgate.WithRequestID(r.Context(), id))
				w.Header().Set(RequestIDHeader, id)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Logging logs one request_complete line per request.
func Logging(opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("user_agent", r.UserAgent()),
			}
			if id := requestIDOf(r); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			o.logger.LogAttrs(r.Context(), slog.LevelInfo, "request_complete", attrs...)
		})
	}
}
