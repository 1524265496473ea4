package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/apperr"
	"github.com/localizekit/authgate/jwt"
)

type MeDeps struct {
	Store account.Store
	Warn  WarnFunc
}

type TeamView struct {
	Team account.Team
	Role string
}

type MeResult struct {
	Profile      account.Profile
	Teams        []TeamView
	ActiveTeamID string
}

// RunMe loads the caller's profile and teams. The active team is the one in
// the token, falling back to the personal team.
func RunMe(ctx context.Context, identity jwt.Claims, deps MeDeps) (MeResult, error) {
	ctx, span := startSpan(ctx, "flows.me")
	var err error
	defer func() { endSpan(span, err) }()

	var result MeResult
	result.Profile, err = deps.Store.GetProfile(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			err = apperr.UserNotFound()
			return MeResult{}, err
		}
		err = fmt.Errorf("lookup profile: %w", err)
		return MeResult{}, err
	}

	var memberships []account.Membership
	memberships, err = deps.Store.ListMemberships(ctx, identity.Subject)
	if err != nil {
		err = fmt.Errorf("list memberships: %w", err)
		return MeResult{}, err
	}
	for _, m := range memberships {
		team, terr := deps.Store.GetTeam(ctx, m.TeamID)
		if terr != nil {
			if errors.Is(terr, account.ErrNotFound) {
				if deps.Warn != nil {
					deps.Warn(ctx, "membership references missing team", "team_id", m.TeamID, "user_id", m.UserID)
				}
				continue
			}
			err = fmt.Errorf("lookup team %s: %w", m.TeamID, terr)
			return MeResult{}, err
		}
		result.Teams = append(result.Teams, TeamView{Team: team, Role: m.Role})
	}

	if len(result.Teams) == 0 && result.Profile.TeamID != nil {
		if team, terr := deps.Store.GetPersonalTeam(ctx, *result.Profile.TeamID); terr == nil {
			result.Teams = append(result.Teams, TeamView{Team: team, Role: account.RoleOwner})
		}
	}

	result.ActiveTeamID = identity.TeamIDValue()
	if result.ActiveTeamID == "" && result.Profile.TeamID != nil {
		result.ActiveTeamID = *result.Profile.TeamID
	}
	return result, nil
}
