package flows

import (
	"context"

	"github.com/localizekit/authgate/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Refresh.Refresh != nil && s.deps.ProviderLogin.Issue != nil
}

func (s Service) ProviderLogin(ctx context.Context, accessToken string, teamID *string) (ProviderLoginResult, error) {
	return RunProviderLogin(ctx, accessToken, teamID, s.deps.ProviderLogin)
}

func (s Service) Register(ctx context.Context, in NewProfile) (RegisterResult, error) {
	return RunRegister(ctx, in, s.deps.Register)
}

func (s Service) SwitchTeam(ctx context.Context, userID, teamID string) (jwt.TokenPair, error) {
	return RunSwitchTeam(ctx, userID, teamID, s.deps.SwitchTeam)
}

func (s Service) Me(ctx context.Context, identity jwt.Claims) (MeResult, error) {
	return RunMe(ctx, identity, s.deps.Me)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}
