// Package internal groups helper packages that are intentionally private to
// the scoped-clients module.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — Redis-backed per-subject issuance throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public scoped API without a root alias.
//   - Be imported by any package outside this module.
package internal
