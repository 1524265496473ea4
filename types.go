package authgate

import (
	"github.com/localizekit/authgate/internal/flows"
	"github.com/localizekit/authgate/jwt"
)

// TokenPair is an access/refresh token pair.
type TokenPair = jwt.TokenPair

// LoginResult is returned by Engine.LoginWithProvider. Provisioned reports
// whether the profile was created by this login.
type LoginResult = flows.ProviderLoginResult

// RegisterInput describes a user registered directly. ID and Email are
// required; Plan defaults to free.
type RegisterInput = flows.NewProfile

// RegisterResult is the provisioned profile, its personal team and a pair
// scoped to that team.
type RegisterResult = flows.RegisterResult

// MeResult is the caller's profile, teams and active team.
type MeResult = flows.MeResult

// TeamView is one team the caller belongs to with their role in it.
type TeamView = flows.TeamView
