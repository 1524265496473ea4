package authgate

import (
	"context"

	"github.com/localizekit/authgate/apperr"
	"github.com/localizekit/authgate/jwt"
)

// Identity is the verified claim set of the caller. It is attached to the
// request context by the authorization gate and lives as long as the
// request.
type Identity = jwt.Claims

type identityContextKey struct{}
type requestIDContextKey struct{}

// WithIdentity attaches a verified identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by the gate, if any.
// Public routes never carry one.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// RequireIdentity is IdentityFromContext for handlers that cannot proceed
// without one.
func RequireIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.Subject == "" {
		return Identity{}, apperr.Unauthorized("User not authenticated")
	}
	return id, nil
}

// WithRequestID attaches the inbound request id for logs and audit.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
