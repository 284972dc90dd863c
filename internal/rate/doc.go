// Package rate implements the optional Redis-backed issuance throttle.
//
// The throttle guards mint volume per subject with fixed-window counters.
// It deliberately knows nothing about tokens or sessions: the stateless
// signing core stays stateless whether or not a limiter is attached.
package rate
