// Package server is the authgate HTTP API: the route table, request
// decoding and the success envelope. Failures are written by
// middleware.WriteError so every error response has the same body.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/metrics/export/prometheus"
	"github.com/localizekit/authgate/middleware"
)

// ErrEngineRequired is returned by New without an engine.
var ErrEngineRequired = errors.New("server: engine required")

// Options configures New. Only Engine is required.
type Options struct {
	Engine *authgate.Engine
	Logger *slog.Logger
	// Metrics serves GET /metrics. Nil renders the engine snapshot as
	// Prometheus text.
	Metrics http.Handler
	// Now stamps envelopes and error bodies.
	Now func() time.Time
}

// Server routes the API. It holds no per-request state.
type Server struct {
	engine  *authgate.Engine
	logger  *slog.Logger
	now     func() time.Time
	router  *middleware.Router
	handler http.Handler
}

func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, ErrEngineRequired
	}
	s := &Server{
		engine: opts.Engine,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if s.logger == nil {
		s.logger = opts.Engine.Logger()
	}
	if s.now == nil {
		s.now = time.Now
	}

	mwOpts := []middleware.Option{
		middleware.WithLogger(s.logger),
		middleware.WithMetrics(opts.Engine.Metrics()),
		middleware.WithClock(s.now),
	}
	s.router = middleware.NewRouter(http.NewServeMux(), opts.Engine, mwOpts...)

	metricsHandler := opts.Metrics
	if metricsHandler == nil {
		metricsHandler = prometheus.New(opts.Engine).Handler()
	}

	s.router.PublicFunc("GET /{$}", s.health)
	s.router.PublicFunc("POST /api/v1/auth/login", s.login)
	s.router.PublicFunc("POST /api/v1/auth/refresh", s.refresh)
	s.router.PrivateFunc("POST /api/v1/auth/switch-team", s.switchTeam)
	s.router.PublicFunc("POST /api/v1/users/register", s.register)
	s.router.PrivateFunc("GET /api/v1/users/me", s.me)
	s.router.Public("GET /metrics", metricsHandler)

	var h http.Handler = s.router
	h = middleware.Recover(mwOpts...)(h)
	h = middleware.Logging(mwOpts...)(h)
	h = middleware.RequestID()(h)
	s.handler = h
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Routes lists the registered routes and their access levels.
func (s *Server) Routes() []middleware.Route {
	return s.router.Routes()
}

// ServeOptions bounds the HTTP server. Zero values take the defaults
// below.
type ServeOptions struct {
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
}

func (o ServeOptions) withDefaults() ServeOptions {
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 10 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 15 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, opts ServeOptions) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h, opts)
}

// Serve is ListenAndServe on an existing listener. In-flight requests get
// ShutdownTimeout to finish once ctx is done.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, opts ServeOptions) error {
	opts = opts.withDefaults()
	logger := opts.Logger
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
