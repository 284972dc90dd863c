// Package token implements Supabase-compatible claim construction and HS256
// signing/verification for user impersonation tokens.
//
// The package is deliberately small and pure: BuildClaims consumes an
// injected timestamp and performs no I/O, and Signer is an immutable value
// safe for concurrent use. Verification distinguishes an expired token
// (refreshable) from an invalid signature (hard failure, possible tampering)
// so callers can react differently.
//
// # What this package must NOT do
//
//   - Read configuration or the environment.
//   - Import the root scoped package (no import cycles).
//   - Accept signing algorithms other than HS256; the remote verifier shares
//     a symmetric secret and algorithm confusion must be impossible.
package token
