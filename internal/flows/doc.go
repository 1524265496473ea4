// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunProviderLogin, RunRegister, RunSwitchTeam, RunMe,
// RunRefresh) accepts a typed dependency struct and returns results without
// side effects beyond those dependencies. Flows never pick HTTP statuses;
// failures are apperr kinds classified at the boundary.
//
// # Architecture boundaries
//
// Flows coordinate the identity provider, the account store and token
// issuance. They do NOT own any of these resources; ownership stays with
// the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authgate (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
