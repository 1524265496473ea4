// Package apperr defines the authgate failure taxonomy.
//
// Every failure produced by authgate components is an [*Error] tagged with a
// [Kind]. [Classify] is the single place where failures become HTTP status
// codes and messages; inner components never pick a status themselves.
//
// # Priority
//
// Some kinds overlap structurally: a provider-auth failure is conceptually
// an authentication failure but is reported as 500, and an expired JWT is
// reported with a fixed message regardless of its tag. Classify documents
// and enforces the rule order.
package apperr
