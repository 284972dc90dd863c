// Package audit implements async event dispatching for token lifecycle
// operations: issuance, refresh, throttling, and session teardown.
//
// Emission never blocks the token hot path beyond a channel send; with
// DropIfFull the send itself is non-blocking and drops are counted.
package audit
