package middleware

import (
	"log/slog"
	"time"

	"github.com/localizekit/authgate"
)

// Option configures the gate, router and error boundary.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *authgate.Metrics
	now     func() time.Time
}

// WithLogger sets the logger for request_exception and request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records gate decisions into m.
func WithMetrics(m *authgate.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides the clock used for error body timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}
