package authgate

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localizekit/authgate/account"
	internalaudit "github.com/localizekit/authgate/internal/audit"
	"github.com/localizekit/authgate/internal/flows"
	"github.com/localizekit/authgate/jwt"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config

	store     account.Store
	provider  account.IdentityProvider
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time
	newID     func() string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the profile, team and membership store. Required.
func (b *Builder) WithStore(store account.Store) *Builder {
	b.store = store
	return b
}

// WithIdentityProvider enables LoginWithProvider.
func (b *Builder) WithIdentityProvider(p account.IdentityProvider) *Builder {
	b.provider = p
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the wall clock for token timestamps and record
// creation times.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithIDGenerator overrides the generator for team and membership ids.
func (b *Builder) WithIDGenerator(newID func() string) *Builder {
	b.newID = newID
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, ErrStoreRequired
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	issuer, err := newIssuer(cfg.JWT, now)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		issuer:   issuer,
		store:    b.store,
		provider: b.provider,
		logger:   logger,
		now:      now,
		metrics:  NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	provisioning := flows.Provisioning{Store: b.store, NewID: newID, Now: now}
	engine.flows = flows.New(flows.Deps{
		ProviderLogin: flows.ProviderLoginDeps{
			Provider:     b.provider,
			Provisioning: provisioning,
			Issue:        issuer.Issue,
		},
		Register:   flows.RegisterDeps{Provisioning: provisioning, Issue: issuer.Issue},
		SwitchTeam: flows.SwitchTeamDeps{Store: b.store, Issue: issuer.Issue},
		Me:         flows.MeDeps{Store: b.store, Warn: logger.WarnContext},
		Refresh:    flows.RefreshDeps{Refresh: issuer.Refresh},
	})

	b.built = true
	return engine, nil
}

func newIssuer(cfg JWTConfig, now func() time.Time) (*jwt.Issuer, error) {
	method := jwt.SigningMethod(strings.ToLower(cfg.SigningMethod))
	if method == "" {
		method = jwt.MethodHS256
	}
	refreshSecret := cfg.RefreshSecret
	if len(refreshSecret) == 0 {
		refreshSecret = cfg.Secret
	}

	access, err := jwt.NewCodec(jwt.Config{
		SigningMethod: method,
		Secret:        cloneBytes(cfg.Secret),
		PrivateKey:    cloneBytes(cfg.PrivateKey),
		PublicKey:     cloneBytes(cfg.PublicKey),
		Use:           jwt.UseAccess,
		Issuer:        cfg.Issuer,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	refresh, err := jwt.NewCodec(jwt.Config{
		SigningMethod: method,
		Secret:        cloneBytes(refreshSecret),
		PrivateKey:    cloneBytes(cfg.PrivateKey),
		PublicKey:     cloneBytes(cfg.PublicKey),
		Use:           jwt.UseRefresh,
		Issuer:        cfg.Issuer,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	return jwt.NewIssuer(access, refresh, cfg.AccessTTL, cfg.RefreshTTL)
}
