package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/apperr"
	"github.com/localizekit/authgate/jwt"
)

// RegisterDeps captures direct registration dependencies.
type RegisterDeps struct {
	Provisioning Provisioning
	Issue        IssueFunc
}

// RegisterResult is the provisioned profile with a session scoped to its
// personal team.
type RegisterResult struct {
	Profile account.Profile
	Team    account.Team
	Tokens  jwt.TokenPair
}

// RunRegister provisions a user whose identity was established elsewhere.
// Input is expected to be validated by the caller.
func RunRegister(ctx context.Context, in NewProfile, deps RegisterDeps) (RegisterResult, error) {
	ctx, span := startSpan(ctx, "flows.register")
	var err error
	defer func() { endSpan(span, err) }()

	if _, err = deps.Provisioning.Store.GetProfile(ctx, in.ID); err == nil {
		err = apperr.UserConflict("user already exists", nil)
		return RegisterResult{}, err
	} else if !errors.Is(err, account.ErrNotFound) {
		err = fmt.Errorf("lookup profile: %w", err)
		return RegisterResult{}, err
	}

	var result RegisterResult
	result.Profile, result.Team, err = deps.Provisioning.Provision(ctx, in)
	if err != nil {
		return RegisterResult{}, err
	}

	result.Tokens, err = deps.Issue(claimsFor(result.Profile, result.Team.ID))
	if err != nil {
		return RegisterResult{}, err
	}
	return result, nil
}
