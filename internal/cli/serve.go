package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/internal/server"
	otelexport "github.com/localizekit/authgate/metrics/export/otel"
	"github.com/localizekit/authgate/provider/supabase"
	"github.com/localizekit/authgate/telemetry"
)

type serveOptions struct {
	addr        string
	autoMigrate bool
	auditLog    string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the authgate HTTP API until interrupted.

The listen port comes from PORT (default 3000) unless --addr is given.
Provider login needs SUPABASE_URL and SUPABASE_SECRET_KEY.

Examples:
  JWT_SECRET=... SUPABASE_URL=... SUPABASE_SECRET_KEY=... authgate serve
  AUTHGATE_STORE=postgres DB_URL_STRING=postgres://... authgate serve --auto-migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address, overrides PORT")
	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", false, "apply postgres schema migrations before serving")
	cmd.Flags().StringVar(&opts.auditLog, "audit-log", "", "append audit events as JSON lines to this file instead of the log")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx := cmd.Context()

	cfg, err := authgate.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	if err := cfg.RequireProvider(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store, err := openStore(ctx, cfg, logger, opts.autoMigrate)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("store close failed", slog.String("error", err.Error()))
		}
	}()

	provider, err := supabase.New(supabase.Config{
		URL:       cfg.Provider.URL,
		SecretKey: cfg.Provider.SecretKey,
		Timeout:   cfg.Provider.Timeout,
	})
	if err != nil {
		return err
	}

	sink, closeSink, err := auditSink(opts.auditLog, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	engine, err := authgate.New().
		WithConfig(cfg).
		WithStore(store).
		WithIdentityProvider(provider).
		WithLogger(logger).
		WithAuditSink(sink).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	// telemetry.Setup installed the SDK meter provider when an endpoint is set.
	meterExport, err := otelexport.New(otel.GetMeterProvider().Meter("github.com/localizekit/authgate"), engine)
	if err != nil {
		return fmt.Errorf("register otel metrics: %w", err)
	}
	defer func() { _ = meterExport.Close() }()

	srv, err := server.New(server.Options{Engine: engine, Logger: logger})
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = net.JoinHostPort("", strconv.Itoa(cfg.Server.Port))
	}
	logger.Info("authgate starting",
		slog.String("env", cfg.Environment),
		slog.String("store", cfg.Store.Driver),
		slog.String("addr", addr),
	)
	return server.ListenAndServe(ctx, addr, srv, server.ServeOptions{
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		Logger:            logger,
	})
}

func auditSink(path string, logger *slog.Logger) (authgate.AuditSink, func(), error) {
	if path == "" {
		return authgate.NewSlogSink(logger), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	return authgate.NewJSONWriterSink(f), func() {
		if err := f.Close(); err != nil {
			logger.Warn("audit log close failed", slog.String("error", err.Error()))
		}
	}, nil
}
