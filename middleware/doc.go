// Package middleware is the HTTP edge of authgate: the authorization gate,
// a router that declares each route's access level at registration, and
// the error boundary that turns failures into the uniform JSON error body.
//
// Routes are private unless registered as public:
//
//	r := middleware.NewRouter(mux, engine, middleware.WithLogger(logger))
//	r.Public("POST /api/v1/auth/login", login)
//	r.Private("GET /api/v1/users/me", me)
//
// The gate verifies tokens through a Verifier (normally *authgate.Engine)
// and never parses tokens itself. Handlers read the caller with
// authgate.IdentityFromContext or authgate.RequireIdentity.
package middleware
