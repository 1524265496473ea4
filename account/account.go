// Package account holds the profile, team and membership records that
// authgate reads and provisions, plus the store contracts it consumes.
package account

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by stores when a create collides with an
// existing primary or unique key.
var ErrDuplicate = errors.New("duplicate record")

// Plan tiers. PlanFree is the lowest tier and the provisioning default.
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// RoleOwner is the membership role granted on a user's personal team.
const RoleOwner = "owner"

// DefaultTeamName names a personal team when the user has no display name.
const DefaultTeamName = "My Team"

type Profile struct {
	ID        string
	Email     string
	FullName  *string
	AvatarURL *string
	Plan      string
	TeamID    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Team struct {
	ID        string
	Name      string
	OwnerID   string
	AvatarURL *string
	Personal  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Membership struct {
	ID       string
	TeamID   string
	UserID   string
	Role     string
	JoinedAt time.Time
}

// ProfileStore persists user profiles keyed by the identity provider's id.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	CreateProfile(ctx context.Context, p Profile) (Profile, error)
	SetProfileTeam(ctx context.Context, id, teamID string) error
}

// TeamStore persists teams.
type TeamStore interface {
	CreateTeam(ctx context.Context, t Team) (Team, error)
	GetTeam(ctx context.Context, id string) (Team, error)
	// GetPersonalTeam returns the team only when it is flagged personal.
	GetPersonalTeam(ctx context.Context, id string) (Team, error)
}

// MembershipStore persists (team, user, role) tuples.
type MembershipStore interface {
	CreateMembership(ctx context.Context, m Membership) (Membership, error)
	GetMembership(ctx context.Context, teamID, userID string) (Membership, error)
	ListMemberships(ctx context.Context, userID string) ([]Membership, error)
}

// Store is the full persistence surface used by the login and registration
// flows. The memory, sqlite and postgres packages implement it.
type Store interface {
	ProfileStore
	TeamStore
	MembershipStore
}

// ProviderIdentity is a user as reported by the external identity provider.
type ProviderIdentity struct {
	ID       string
	Email    string
	Metadata map[string]any
}

// DisplayName returns full_name, then name, then "".
func (p ProviderIdentity) DisplayName() string {
	return firstString(p.Metadata, "full_name", "name")
}

// AvatarURL returns avatar_url, then picture, then "".
func (p ProviderIdentity) AvatarURL() string {
	return firstString(p.Metadata, "avatar_url", "picture")
}

// IdentityProvider exchanges a provider-issued access token for the
// identity it belongs to.
type IdentityProvider interface {
	GetUser(ctx context.Context, accessToken string) (ProviderIdentity, error)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// StringPtr returns nil for "".
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
