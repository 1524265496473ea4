package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/apperr"
	"github.com/localizekit/authgate/jwt"
)

// ProviderLoginDeps captures provider login dependencies.
type ProviderLoginDeps struct {
	Provider     account.IdentityProvider
	Provisioning Provisioning
	Issue        IssueFunc
}

// ProviderLoginResult carries the issued pair and what the flow resolved.
type ProviderLoginResult struct {
	Profile     account.Profile
	TeamID      string
	Provisioned bool
	Tokens      jwt.TokenPair
}

// RunProviderLogin exchanges a provider access token for a local session.
//
// Steps run in order and any failure stops the flow: exchange, find or
// provision the profile, resolve the team, issue tokens. A provisioned
// profile stays persisted even when team resolution fails afterwards.
func RunProviderLogin(ctx context.Context, accessToken string, teamID *string, deps ProviderLoginDeps) (ProviderLoginResult, error) {
	ctx, span := startSpan(ctx, "flows.provider_login")
	var err error
	defer func() { endSpan(span, err) }()

	var result ProviderLoginResult

	var identity account.ProviderIdentity
	identity, err = exchange(ctx, deps.Provider, accessToken)
	if err != nil {
		return result, err
	}

	result.Profile, result.Provisioned, err = findOrProvision(ctx, deps.Provisioning, identity)
	if err != nil {
		return result, err
	}

	if teamID == nil || strings.TrimSpace(*teamID) == "" {
		result.TeamID, err = resolvePersonalTeam(ctx, deps.Provisioning.Store, result.Profile)
	} else {
		result.TeamID, err = resolveMemberTeam(ctx, deps.Provisioning.Store, result.Profile.ID, strings.TrimSpace(*teamID))
	}
	if err != nil {
		return result, err
	}

	result.Tokens, err = deps.Issue(claimsFor(result.Profile, result.TeamID))
	if err != nil {
		return result, err
	}
	return result, nil
}

func exchange(ctx context.Context, provider account.IdentityProvider, accessToken string) (account.ProviderIdentity, error) {
	ctx, span := startSpan(ctx, "flows.provider_login.exchange")
	identity, err := provider.GetUser(ctx, accessToken)
	switch {
	case err != nil:
		err = apperr.ProviderAuth(err.Error(), err)
	case identity.ID == "":
		err = apperr.ProviderAuth("provider returned no identity", nil)
	}
	endSpan(span, err)
	return identity, err
}

func findOrProvision(ctx context.Context, p Provisioning, identity account.ProviderIdentity) (account.Profile, bool, error) {
	ctx, span := startSpan(ctx, "flows.provider_login.find_or_create")
	var err error
	defer func() { endSpan(span, err) }()

	var profile account.Profile
	profile, err = p.Store.GetProfile(ctx, identity.ID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		err = apperr.ProviderAuth("profile lookup failed: "+err.Error(), err)
		return account.Profile{}, false, err
	}

	profile, _, err = p.Provision(ctx, NewProfile{
		ID:        identity.ID,
		Email:     identity.Email,
		FullName:  identity.DisplayName(),
		AvatarURL: identity.AvatarURL(),
		Plan:      account.PlanFree,
	})
	if err != nil {
		if !apperr.HasKind(err, apperr.KindUserConflict) {
			err = apperr.ProviderAuth("profile provisioning failed: "+err.Error(), err)
		}
		return account.Profile{}, true, err
	}
	return profile, true, nil
}

func claimsFor(profile account.Profile, teamID string) jwt.Claims {
	return jwt.Claims{
		Subject: profile.ID,
		Email:   jwt.String(profile.Email),
		Plan:    jwt.String(profile.Plan),
		TeamID:  jwt.String(teamID),
	}
}
