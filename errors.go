package scoped

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySubject is returned when a caller supplies an empty or
	// whitespace-only subject identifier. Always a programming error.
	ErrEmptySubject = errors.New("subject cannot be empty")
	// ErrSessionDiscarded is returned by operations on a session after
	// [Session.Discard]. Always a programming error.
	ErrSessionDiscarded = errors.New("session already discarded")
	// ErrBuilderUsed is returned when Build is called twice on the same builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrIssueFailed wraps unexpected signing-library failures during token
	// issuance. The session stays stale and retries on the next access.
	ErrIssueFailed = errors.New("token issuance failed")
	// ErrIssueRateLimited is returned when the optional Redis-backed issuance
	// throttle rejects a mint for the session's subject.
	ErrIssueRateLimited = errors.New("token issuance rate limited")
	// ErrRefreshThresholdInvalid is returned by Build when the refresh
	// threshold is negative or not shorter than the token validity.
	ErrRefreshThresholdInvalid = errors.New("refresh threshold must be non-negative and shorter than token validity")
)

// ConfigurationError reports a missing or invalid configuration value.
// It carries the field name and reason so startup failures are actionable.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s - %s", e.Field, e.Reason)
}

// IsConfigurationError reports whether err is (or wraps) a [ConfigurationError].
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
