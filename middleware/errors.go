package middleware

import (
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/apperr"
)

// RequestIDHeader is echoed into error bodies when present.
const RequestIDHeader = "X-Request-Id"

// WriteError classifies err and writes the uniform JSON error body. It is
// the only place a failure becomes a status code.
func WriteError(w http.ResponseWriter, r *http.Request, err error, opts ...Option) {
	writeError(w, r, err, buildOptions(opts))
}

func writeError(w http.ResponseWriter, r *http.Request, err error, o options) {
	c := apperr.Classify(err)
	requestID := requestIDOf(r)
	body := c.Body(r.URL.Path, requestID, o.now())

	level := slog.LevelWarn
	if c.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.Int("status", c.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("message", c.Message),
	}
	if c.Kind != 0 {
		attrs = append(attrs, slog.String("kind", c.Kind.String()))
	}
	if requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if len(c.Context) > 0 {
		keys := slices.Sorted(maps.Keys(c.Context))
		fields := make([]any, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, slog.String(k, c.Context[k]))
		}
		attrs = append(attrs, slog.Group("context", fields...))
	}
	o.logger.LogAttrs(r.Context(), level, "request_exception", attrs...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c.Status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestIDOf(r *http.Request) string {
	if id := authgate.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(RequestIDHeader)
}
