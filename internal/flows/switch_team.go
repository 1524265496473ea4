package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/apperr"
	"github.com/localizekit/authgate/jwt"
)

// SwitchTeamDeps captures switch-team dependencies.
type SwitchTeamDeps struct {
	Store account.Store
	Issue IssueFunc
}

// RunSwitchTeam issues a new pair for userID scoped to teamID. Membership
// is checked before the profile is read.
func RunSwitchTeam(ctx context.Context, userID, teamID string, deps SwitchTeamDeps) (jwt.TokenPair, error) {
	ctx, span := startSpan(ctx, "flows.switch_team")
	var err error
	defer func() { endSpan(span, err) }()

	var resolved string
	resolved, err = resolveMemberTeam(ctx, deps.Store, userID, teamID)
	if err != nil {
		return jwt.TokenPair{}, err
	}

	var profile account.Profile
	profile, err = deps.Store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			err = apperr.Unauthorized("user not found")
			return jwt.TokenPair{}, err
		}
		err = fmt.Errorf("lookup profile: %w", err)
		return jwt.TokenPair{}, err
	}

	var pair jwt.TokenPair
	pair, err = deps.Issue(claimsFor(profile, resolved))
	return pair, err
}
