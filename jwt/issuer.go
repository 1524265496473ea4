package jwt

import (
	"errors"
	"fmt"
	"time"
)

// Issuer produces access/refresh token pairs from two independently keyed
// codecs. Refresh is stateless: it trusts the refresh token's claims and
// does not consult any store.
type Issuer struct {
	access     *Codec
	refresh    *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer requires both codecs and positive TTLs. The refresh TTL must not
// be shorter than the access TTL.
func NewIssuer(access, refresh *Codec, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if access == nil || refresh == nil {
		return nil, errors.New("issuer requires access and refresh codecs")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if refreshTTL < accessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if access.Use() == refresh.Use() && access.Use() != "" {
		return nil, fmt.Errorf("access and refresh codecs share use %q", access.Use())
	}
	return &Issuer{
		access:     access,
		refresh:    refresh,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Issue signs claims twice. Both tokens carry the same payload, so the
// access claims are always a subset of the refresh claims.
func (i *Issuer) Issue(claims Claims) (TokenPair, error) {
	payload := claims.Payload()
	access, err := i.access.Sign(payload, i.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := i.refresh.Sign(payload, i.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh verifies refreshToken and issues a fresh pair from its claims.
// Verification failures propagate unchanged (apperr InvalidToken).
func (i *Issuer) Refresh(refreshToken string) (TokenPair, Claims, error) {
	claims, err := i.refresh.Verify(refreshToken)
	if err != nil {
		return TokenPair{}, Claims{}, err
	}
	pair, err := i.Issue(claims)
	if err != nil {
		return TokenPair{}, Claims{}, err
	}
	return pair, claims.Payload(), nil
}

// VerifyAccess verifies an access token.
func (i *Issuer) VerifyAccess(token string) (Claims, error) {
	return i.access.Verify(token)
}

// VerifyRefresh verifies a refresh token without issuing anything.
func (i *Issuer) VerifyRefresh(token string) (Claims, error) {
	return i.refresh.Verify(token)
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }
