package authgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/apperr"
	internalaudit "github.com/localizekit/authgate/internal/audit"
	"github.com/localizekit/authgate/internal/flows"
	"github.com/localizekit/authgate/jwt"
)

// Engine issues and verifies session tokens and runs the account flows.
// It keeps no per-session state and is safe for concurrent use.
type Engine struct {
	config   Config
	issuer   *jwt.Issuer
	flows    flows.Service
	store    account.Store
	provider account.IdentityProvider
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Close drains the audit dispatcher. It does not close the store.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live metric set for collaborators such as the
// authorization gate.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) Logger() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Issuer returns the token issuer backing the engine.
func (e *Engine) Issuer() *jwt.Issuer {
	if e == nil {
		return nil
	}
	return e.issuer
}

func (e *Engine) ready() error {
	if e == nil || e.issuer == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return nil
}

// IssueTokens signs an access and a refresh token over the same claims.
func (e *Engine) IssueTokens(ctx context.Context, claims Identity) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	pair, err := e.issuer.Issue(claims)
	if err != nil {
		e.metrics.Inc(MetricIssueFailure)
		e.emitAudit(ctx, AuditEventIssue, claims.Subject, claims.TeamIDValue(), err, nil)
		return TokenPair{}, err
	}
	e.metrics.Inc(MetricIssueSuccess)
	e.emitAudit(ctx, AuditEventIssue, claims.Subject, claims.TeamIDValue(), nil, nil)
	return pair, nil
}

// RefreshTokens verifies refreshToken and re-issues a pair from its claims.
// Failures are InvalidToken errors. The user and team named in the token
// are not re-checked.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	res := e.flows.Refresh(ctx, refreshToken)
	if res.Err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditEventRefresh, "", "", res.Err, nil)
		return TokenPair{}, res.Err
	}
	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEventRefresh, res.Claims.Subject, res.Claims.TeamIDValue(), nil, nil)
	return res.Tokens, nil
}

// VerifyAccess verifies an access token and returns its identity.
func (e *Engine) VerifyAccess(_ context.Context, token string) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}
	start := time.Now()
	id, err := e.issuer.VerifyAccess(token)
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	if err != nil {
		e.metrics.Inc(MetricVerifyFailure)
		var tagged *apperr.Error
		if errors.As(err, &tagged) && tagged.Reason == jwt.ReasonExpired {
			e.metrics.Inc(MetricVerifyExpired)
		}
		return Identity{}, err
	}
	e.metrics.Inc(MetricVerifySuccess)
	return id, nil
}

// LoginWithProvider exchanges an identity provider access token for a
// session, provisioning the profile on first login. teamID selects a team
// the user belongs to; nil or empty selects the personal team.
func (e *Engine) LoginWithProvider(ctx context.Context, accessToken string, teamID *string) (LoginResult, error) {
	if err := e.ready(); err != nil {
		return LoginResult{}, err
	}
	if e.provider == nil {
		return LoginResult{}, ErrProviderNotConfigured
	}

	start := time.Now()
	res, err := e.flows.ProviderLogin(ctx, accessToken, teamID)
	e.metrics.Observe(MetricProviderLoginLatency, time.Since(start))

	if res.Provisioned && res.Profile.ID != "" {
		e.metrics.Inc(MetricProvisioned)
		e.emitAudit(ctx, AuditEventProvisioned, res.Profile.ID, res.TeamID, nil,
			map[string]string{"source": "provider"})
	}
	if err != nil {
		e.metrics.Inc(MetricProviderLoginFailure)
		e.emitAudit(ctx, AuditEventProviderLogin, res.Profile.ID, requestedTeam(teamID), err, nil)
		e.logFailure(ctx, "provider login failed", err, slog.String("user_id", res.Profile.ID))
		return LoginResult{}, err
	}
	e.metrics.Inc(MetricProviderLoginSuccess)
	e.emitAudit(ctx, AuditEventProviderLogin, res.Profile.ID, res.TeamID, nil, nil)
	return res, nil
}

// Register provisions a user directly and issues a pair scoped to their
// personal team. An existing id is a UserConflict.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if err := e.ready(); err != nil {
		return RegisterResult{}, err
	}
	in.ID = strings.TrimSpace(in.ID)
	in.Email = strings.TrimSpace(in.Email)
	if in.ID == "" || in.Email == "" {
		return RegisterResult{}, apperr.NewHTTPError(http.StatusBadRequest, "id and email are required")
	}

	res, err := e.flows.Register(ctx, in)
	if err != nil {
		if apperr.HasKind(err, apperr.KindUserConflict) {
			e.metrics.Inc(MetricRegisterConflict)
		} else {
			e.metrics.Inc(MetricRegisterFailure)
			e.logFailure(ctx, "register failed", err, slog.String("user_id", in.ID))
		}
		e.emitAudit(ctx, AuditEventRegister, in.ID, "", err, nil)
		return RegisterResult{}, err
	}
	e.metrics.Inc(MetricRegisterSuccess)
	e.metrics.Inc(MetricProvisioned)
	e.emitAudit(ctx, AuditEventRegister, res.Profile.ID, res.Team.ID, nil, nil)
	return res, nil
}

// SwitchTeam issues a new pair for the caller scoped to teamID.
func (e *Engine) SwitchTeam(ctx context.Context, identity Identity, teamID string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	pair, err := e.flows.SwitchTeam(ctx, identity.Subject, strings.TrimSpace(teamID))
	if err != nil {
		if apperr.HasKind(err, apperr.KindTeamAccessForbidden) {
			e.metrics.Inc(MetricSwitchTeamForbidden)
		} else {
			e.metrics.Inc(MetricSwitchTeamFailure)
		}
		e.emitAudit(ctx, AuditEventSwitchTeam, identity.Subject, teamID, err, nil)
		return TokenPair{}, err
	}
	e.metrics.Inc(MetricSwitchTeamSuccess)
	e.emitAudit(ctx, AuditEventSwitchTeam, identity.Subject, teamID, nil, nil)
	return pair, nil
}

// Me loads the caller's profile and team memberships.
func (e *Engine) Me(ctx context.Context, identity Identity) (MeResult, error) {
	if err := e.ready(); err != nil {
		return MeResult{}, err
	}
	res, err := e.flows.Me(ctx, identity)
	if err != nil {
		e.metrics.Inc(MetricMeFailure)
		return MeResult{}, err
	}
	e.metrics.Inc(MetricMeSuccess)
	return res, nil
}

// logFailure logs unexpected failures. Taxonomy errors other than
// ProviderAuth are expected request outcomes and are not logged here.
func (e *Engine) logFailure(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	kind, tagged := apperr.KindOf(err)
	if tagged && kind != apperr.KindProviderAuth {
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	e.Logger().LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

func requestedTeam(teamID *string) string {
	if teamID == nil {
		return ""
	}
	return strings.TrimSpace(*teamID)
}
