package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/store/memory"
	"github.com/localizekit/authgate/store/postgres"
	"github.com/localizekit/authgate/store/sqlite"
)

// closableStore is an account store that owns a connection.
type closableStore interface {
	account.Store
	Close() error
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// newLogger picks JSON in production or when LOG_FORMAT=json, text
// otherwise.
func newLogger(cfg authgate.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Log.Format
	if format == "" {
		if cfg.Environment == authgate.EnvProduction {
			format = "json"
		} else {
			format = "text"
		}
	}
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return slog.New(h).With(slog.String("service", cfg.Telemetry.ServiceName)), nil
}

// openStore opens the configured driver. The sqlite store migrates on
// open; postgres migrates only when migrate is set.
func openStore(ctx context.Context, cfg authgate.Config, logger *slog.Logger, migrate bool) (closableStore, error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case authgate.StoreMemory, "":
		return memory.New(), nil
	case authgate.StoreSQLite:
		return sqlite.Open(ctx, cfg.Store.SQLitePath)
	case authgate.StorePostgres:
		s, err := postgres.Open(ctx, cfg.Store.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := s.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
