package jwt

import "time"

// Claims is the payload carried by access and refresh tokens.
//
// IssuedAt and ExpiresAt are filled by Verify and ignored by Sign.
type Claims struct {
	Subject   string
	Email     *string
	Plan      *string
	TeamID    *string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Payload returns a copy of c without the codec-managed timestamps, suitable
// for re-signing.
func (c Claims) Payload() Claims {
	return Claims{
		Subject: c.Subject,
		Email:   cloneString(c.Email),
		Plan:    cloneString(c.Plan),
		TeamID:  cloneString(c.TeamID),
	}
}

// WithTeam returns a payload scoped to teamID.
func (c Claims) WithTeam(teamID string) Claims {
	out := c.Payload()
	out.TeamID = &teamID
	return out
}

func (c Claims) EmailValue() string  { return deref(c.Email) }
func (c Claims) PlanValue() string   { return deref(c.Plan) }
func (c Claims) TeamIDValue() string { return deref(c.TeamID) }

// TokenPair is an access token plus the refresh token that can replace it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// String returns s as an optional claim value, nil when empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
