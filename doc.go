// Package authgate issues and verifies stateless session tokens for users
// who authenticated with an external identity provider, and scopes those
// sessions to a team.
//
// An [Engine] is built once through [Builder.Build] and is safe for
// concurrent use. It exchanges a provider access token for an
// access/refresh pair ([Engine.LoginWithProvider]), provisions a profile
// and personal team on first login, rotates pairs ([Engine.RefreshTokens])
// and verifies access tokens for the authorization gate in the middleware
// package.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config]
// and the result types. Flow orchestration, audit dispatch and metric
// storage live under internal/ and are never exported. Persistence is an
// account.Store (memory, sqlite or postgres); the identity provider is an
// account.IdentityProvider (provider/supabase).
//
// # What this package must NOT do
//
//   - Keep per-session server state. Tokens are self-contained; there is
//     no revocation list.
//   - Choose HTTP statuses. Failures are apperr kinds classified at the
//     HTTP boundary.
//   - Import any sub-package that re-imports authgate (no import cycles).
//
// # Performance contract
//
// VerifyAccess is the hot path. It performs no I/O and touches the
// metrics only through atomic counters.
package authgate
