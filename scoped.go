package scoped

import (
	"context"
	"net/http"
	"sync"

	"github.com/iAmLakshya/supabase-scoped-clients/internal/audit"
)

// RemoteClient is the capability the scoped facade needs from the opaque
// data-plane client: a way to replace its bearer credential. The shape of
// the client's remote operations is deliberately not defined here; callers
// reach them through [Client.Do] or [Client.Remote] after the credential has
// been applied.
type RemoteClient interface {
	// ApplyToken replaces the client's bearer credential with the given
	// signed token string.
	ApplyToken(token string)
}

// Client is the scoped session facade. Every outbound operation first
// obtains a currently-valid token from the session's refresh coordinator and
// applies it to the wrapped remote client before the operation proceeds.
// The facade adds no retry logic around remote operations, only around
// credential freshness.
type Client struct {
	session *Session
	remote  RemoteClient
	audit   *audit.Dispatcher
	metrics *Metrics
}

// Do resolves a valid token, applies it to the remote client, then invokes
// op with the credentialed client. If credential refresh fails, op is never
// invoked and the refresh error is returned; errors from op itself propagate
// unchanged.
func (c *Client) Do(ctx context.Context, op func(remote RemoteClient) error) error {
	remote, err := c.Remote(ctx)
	if err != nil {
		return err
	}
	return op(remote)
}

// Remote returns the wrapped remote client with a currently-valid token
// applied. Prefer [Client.Do] for single operations; use Remote when a
// caller needs to chain several calls under one freshness check.
func (c *Client) Remote(ctx context.Context) (RemoteClient, error) {
	tok, err := c.session.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	c.remote.ApplyToken(tok.Raw)
	return c.remote, nil
}

// Session exposes the refresh coordinator for introspection (state, expiry)
// and explicit teardown.
func (c *Client) Session() *Session {
	return c.session
}

// Discard tears down the session. Subsequent operations fail fast with
// [ErrSessionDiscarded].
func (c *Client) Discard() {
	c.session.Discard()
}

// Close discards the session and flushes the audit dispatcher, if any.
func (c *Client) Close() {
	c.session.Discard()
	c.audit.Close()
}

// MetricsSnapshot returns a point-in-time deep copy of the client's metrics.
// It satisfies the source interface of the metrics exporters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped due to dispatcher
// backpressure.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// HeaderRemote is a minimal [RemoteClient] that maintains the HTTP headers a
// Supabase data-plane request needs: the project API key and the bearer
// token. It is the credential seam used by the examples and by callers that
// construct their own transport.
type HeaderRemote struct {
	mu     sync.Mutex
	header http.Header
}

// NewHeaderRemote creates a HeaderRemote carrying the project API key from cfg.
func NewHeaderRemote(cfg Config) *HeaderRemote {
	header := make(http.Header)
	if cfg.Key != "" {
		header.Set("apikey", cfg.Key)
	}
	return &HeaderRemote{header: header}
}

// ApplyToken replaces the Authorization header with the given bearer token.
func (h *HeaderRemote) ApplyToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header.Set("Authorization", "Bearer "+token)
}

// Header returns a copy of the current headers.
func (h *HeaderRemote) Header() http.Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.header.Clone()
}
