package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/apperr"
)

// AccessLevel is the declared access requirement of a route. The zero value
// is Private.
type AccessLevel uint8

const (
	Private AccessLevel = iota
	Public
)

func (l AccessLevel) String() string {
	if l == Public {
		return "public"
	}
	return "private"
}

// Verifier verifies access tokens. *authgate.Engine satisfies it.
type Verifier interface {
	VerifyAccess(ctx context.Context, token string) (authgate.Identity, error)
}

const bearerPrefix = "Bearer "

// Authorize decides one request. Public routes pass with no identity and
// never inspect the header. Private routes need "Bearer <token>" and a
// token that verifies.
func Authorize(ctx context.Context, v Verifier, level AccessLevel, authorization string) (authgate.Identity, bool, error) {
	if level == Public {
		return authgate.Identity{}, false, nil
	}
	if authorization == "" {
		return authgate.Identity{}, false, apperr.MissingAuthHeader()
	}
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return authgate.Identity{}, false, apperr.InvalidAuthScheme()
	}
	if v == nil {
		return authgate.Identity{}, false, apperr.InvalidToken("no verifier configured")
	}

	id, err := v.VerifyAccess(ctx, authorization[len(bearerPrefix):])
	if err != nil {
		if !apperr.HasKind(err, apperr.KindInvalidToken) {
			err = apperr.InvalidTokenCause(err.Error(), err)
		}
		return authgate.Identity{}, false, err
	}
	return id, true, nil
}

// Gate wraps next with the access check for level. Rejections are written
// through WriteError; accepted private requests carry the identity in
// their context.
func Gate(v Verifier, level AccessLevel, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return gate(v, level, o, next)
	}
}

func gate(v Verifier, level AccessLevel, o options, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok, err := Authorize(r.Context(), v, level, r.Header.Get("Authorization"))
		if err != nil {
			o.metrics.Inc(authgate.MetricGateRejected)
			writeError(w, r, err, o)
			return
		}
		o.metrics.Inc(authgate.MetricGateAllowed)
		if ok {
			r = r.WithContext(authgate.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
