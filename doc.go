// Package scoped provides user-scoped Supabase clients backed by short-lived,
// self-signed JWT impersonation tokens with automatic single-flight refresh.
//
// A scoped client lets a trusted backend act on behalf of one end user against
// a row-level-security-enforcing Supabase project without any shared per-user
// session state: every token is minted locally with the project's JWT secret,
// carries the user's identity in its claims, and is replaced transparently
// before it expires.
//
// The package is designed for concurrent server workloads: [Client] and
// [Session] methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// scoped is the public surface. It exposes [Client], [Session], [Issuer],
// [Builder], [Config], and value types (Token, MetricsSnapshot, AuditEvent).
// Claim construction and HMAC signing live in the token sub-package. All
// internal coordination — audit dispatch, issuance throttling — lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Talk to the Supabase data plane. The remote client is an opaque
//     collaborator reached through the [RemoteClient] capability.
//   - Persist or share session state across processes. Each [Session] owns
//     exactly one current token and nothing else.
//   - Cache tokens across independent sessions keyed by subject.
//
// # Performance contract
//
// Session.GetValidToken is the hot path. While the held token is fresh it
// must complete with a single mutex acquisition and no allocation beyond the
// returned Token value. At most one re-issuance runs per session at any
// time; concurrent stale callers share its outcome.
package scoped
