package scoped

import (
	"io"

	"github.com/iAmLakshya/supabase-scoped-clients/internal/audit"
)

// Audit event types emitted over a session's lifetime.
const (
	auditEventSessionCreated   = "session_created"
	auditEventTokenRefreshed   = "token_refreshed"
	auditEventRefreshFailed    = "refresh_failed"
	auditEventIssueRateLimited = "issue_rate_limited"
	auditEventSessionDiscarded = "session_discarded"
)

// AuditEvent is a structured audit record emitted by sessions.
type AuditEvent = audit.Event

// AuditSink receives [AuditEvent] values from the async dispatcher.
type AuditSink = audit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = audit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = audit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
