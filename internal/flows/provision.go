package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/apperr"
)

// NewProfile describes a user about to be provisioned.
type NewProfile struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
	Plan      string
}

// Provision creates the profile, its personal team and the owner
// membership, then points the profile at the team. The profile row is
// written first and is left in place if a later step fails.
//
// A duplicate profile id surfaces as apperr UserConflict.
func (p Provisioning) Provision(ctx context.Context, in NewProfile) (account.Profile, account.Team, error) {
	ctx, span := startSpan(ctx, "flows.provision")
	var err error
	defer func() { endSpan(span, err) }()

	now := p.now()
	plan := in.Plan
	if plan == "" {
		plan = account.PlanFree
	}

	var profile account.Profile
	profile, err = p.Store.CreateProfile(ctx, account.Profile{
		ID:        in.ID,
		Email:     in.Email,
		FullName:  account.StringPtr(in.FullName),
		AvatarURL: account.StringPtr(in.AvatarURL),
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			err = apperr.UserConflict("user already exists", err)
			return account.Profile{}, account.Team{}, err
		}
		err = fmt.Errorf("create profile: %w", err)
		return account.Profile{}, account.Team{}, err
	}

	name := in.FullName
	if name == "" {
		name = account.DefaultTeamName
	}
	var team account.Team
	team, err = p.Store.CreateTeam(ctx, account.Team{
		ID:        p.newID(),
		Name:      name,
		OwnerID:   profile.ID,
		Personal:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = fmt.Errorf("create personal team: %w", err)
		return profile, account.Team{}, err
	}

	if err = p.Store.SetProfileTeam(ctx, profile.ID, team.ID); err != nil {
		err = fmt.Errorf("assign personal team: %w", err)
		return profile, team, err
	}
	profile.TeamID = &team.ID

	if _, err = p.Store.CreateMembership(ctx, account.Membership{
		ID:       p.newID(),
		TeamID:   team.ID,
		UserID:   profile.ID,
		Role:     account.RoleOwner,
		JoinedAt: now,
	}); err != nil {
		err = fmt.Errorf("create owner membership: %w", err)
		return profile, team, err
	}

	return profile, team, nil
}

func (p Provisioning) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

// resolvePersonalTeam returns the team referenced by profile.TeamID, but
// only when that team is flagged personal.
func resolvePersonalTeam(ctx context.Context, teams account.TeamStore, profile account.Profile) (string, error) {
	if profile.TeamID == nil || *profile.TeamID == "" {
		return "", apperr.PersonalTeamNotFound(profile.ID)
	}
	team, err := teams.GetPersonalTeam(ctx, *profile.TeamID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", apperr.PersonalTeamNotFound(profile.ID)
		}
		return "", fmt.Errorf("lookup personal team: %w", err)
	}
	return team.ID, nil
}

// resolveMemberTeam checks that userID belongs to teamID. Team existence is
// not checked; a membership row is sufficient.
func resolveMemberTeam(ctx context.Context, members account.MembershipStore, userID, teamID string) (string, error) {
	parsed, err := uuid.Parse(teamID)
	if err != nil {
		return "", apperr.InvalidTeam(teamID)
	}
	canonical := parsed.String()
	if _, err := members.GetMembership(ctx, canonical, userID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", apperr.TeamAccessForbidden(userID, canonical)
		}
		return "", fmt.Errorf("lookup membership: %w", err)
	}
	return canonical, nil
}
