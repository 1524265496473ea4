// Package jwt signs and verifies authgate session tokens and issues
// access/refresh pairs.
//
// Verification is stateless and never consults a store. Every verification
// failure surfaces as an apperr InvalidToken whose reason tells expiry,
// signature and structural problems apart.
package jwt
