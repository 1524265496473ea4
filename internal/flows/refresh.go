package flows

import (
	"context"

	"github.com/localizekit/authgate/jwt"
)

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Refresh func(refreshToken string) (jwt.TokenPair, jwt.Claims, error)
}

// RefreshResult carries either the issued token pair or the failure.
type RefreshResult struct {
	Err    error
	Claims jwt.Claims
	Tokens jwt.TokenPair
}

// RunRefresh re-issues a pair from a refresh token. It performs no store
// lookups: a refresh token stays usable for its whole lifetime even if the
// user or team it names has since changed.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	_, span := startSpan(ctx, "flows.refresh")
	pair, claims, err := deps.Refresh(refreshToken)
	endSpan(span, err)
	if err != nil {
		return RefreshResult{Err: err}
	}
	return RefreshResult{Claims: claims, Tokens: pair}
}
