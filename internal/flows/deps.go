package flows

import (
	"context"
	"time"

	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/jwt"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	ProviderLogin ProviderLoginDeps
	Register      RegisterDeps
	SwitchTeam    SwitchTeamDeps
	Me            MeDeps
	Refresh       RefreshDeps
}

// Provisioning is shared by every flow that may create a user.
type Provisioning struct {
	Store account.Store
	NewID func() string
	Now   func() time.Time
}

// IssueFunc signs a token pair for claims.
type IssueFunc func(jwt.Claims) (jwt.TokenPair, error)

// WarnFunc logs a non-fatal anomaly.
type WarnFunc func(ctx context.Context, msg string, args ...any)

func (p Provisioning) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}
