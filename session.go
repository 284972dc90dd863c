package scoped

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iAmLakshya/supabase-scoped-clients/internal/audit"
	"github.com/iAmLakshya/supabase-scoped-clients/internal/rate"
)

// SessionState is the refresh coordinator state observable via [Session.State].
type SessionState uint8

const (
	// SessionFresh means the held token's remaining lifetime exceeds the
	// refresh threshold.
	SessionFresh SessionState = iota
	// SessionStale means the held token is within the refresh threshold of
	// expiry and re-issuance is required before the next use.
	SessionStale
	// SessionRefreshing means a re-issuance is in flight.
	SessionRefreshing
	// SessionDiscarded is terminal; the session is no longer usable.
	SessionDiscarded
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case SessionFresh:
		return "fresh"
	case SessionStale:
		return "stale"
	case SessionRefreshing:
		return "refreshing"
	case SessionDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// refreshCall is the shared outcome all concurrent stale callers attach to.
// done is closed exactly once, after token and err are set.
type refreshCall struct {
	done  chan struct{}
	token Token
	err   error
}

// Session binds one subject identity to one continuously-refreshed token
// lifecycle. It owns exactly one current token; the token reference is the
// only mutable shared state and is replaced atomically under the same mutex
// that serializes re-issuance.
//
// Staleness is detected lazily on each GetValidToken call; no background
// timer runs. At most one re-issuance is in flight per session regardless of
// concurrent call volume.
type Session struct {
	id        string
	subject   string
	issue     func() (Token, error)
	threshold time.Duration
	limiter   *rate.Limiter
	metrics   *Metrics
	audit     *audit.Dispatcher
	now       func() time.Time

	mu        sync.Mutex
	current   Token
	inflight  *refreshCall
	discarded bool
}

// newSession mints the initial token and returns a FRESH session.
func newSession(ctx context.Context, issuer *Issuer, subject string, threshold time.Duration, limiter *rate.Limiter, metrics *Metrics, dispatcher *audit.Dispatcher, now func() time.Time) (*Session, error) {
	if now == nil {
		now = time.Now
	}

	s := &Session{
		id:        uuid.NewString(),
		subject:   subject,
		issue:     func() (Token, error) { return issuer.Issue(subject) },
		threshold: threshold,
		limiter:   limiter,
		metrics:   metrics,
		audit:     dispatcher,
		now:       now,
	}

	initial, err := s.mint(ctx)
	if err != nil {
		return nil, err
	}
	s.current = initial

	s.metrics.Inc(MetricSessionCreated)
	s.emitAudit(ctx, auditEventSessionCreated, true, nil, nil)

	return s, nil
}

// GetValidToken returns a token whose remaining lifetime is positive at the
// moment of return, re-issuing first when the held token is within the
// refresh threshold of expiry.
//
// The first caller to observe a stale token initiates the re-issuance; every
// caller that arrives while it is in flight blocks until it resolves and
// receives the same outcome. A failed re-issuance leaves the old token in
// place and the session stale, so the next access retries; there is no
// cached failure. Waiters honor ctx cancellation, but the in-flight signing
// itself is local CPU work and is never aborted.
func (s *Session) GetValidToken(ctx context.Context) (Token, error) {
	s.mu.Lock()
	if s.discarded {
		s.mu.Unlock()
		return Token{}, ErrSessionDiscarded
	}

	if s.current.ExpiresAt.Sub(s.now()) > s.threshold {
		current := s.current
		s.mu.Unlock()
		return current, nil
	}

	call := s.inflight
	if call != nil {
		// A re-issuance is already in flight; share its outcome.
		s.mu.Unlock()
		s.metrics.Inc(MetricRefreshCoalesced)

		select {
		case <-call.done:
		case <-ctx.Done():
			return Token{}, ctx.Err()
		}
		return call.token, call.err
	}

	call = &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.mu.Unlock()

	next, err := s.mint(ctx)

	s.mu.Lock()
	if err == nil {
		s.current = next
	}
	s.inflight = nil
	s.mu.Unlock()

	call.token, call.err = next, err
	close(call.done)

	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, auditEventRefreshFailed, false, err, nil)
		return Token{}, err
	}

	s.metrics.Inc(MetricRefreshSuccess)
	s.emitAudit(ctx, auditEventTokenRefreshed, true, nil, func() map[string]string {
		return map[string]string{
			"expires_at": next.ExpiresAt.UTC().Format(time.RFC3339),
		}
	})

	return next, nil
}

// mint runs one token issuance, applying the optional issuance throttle and
// recording metrics. It never touches session state.
func (s *Session) mint(ctx context.Context) (Token, error) {
	if s.limiter != nil {
		if err := s.limiter.CheckIssue(ctx, s.subject); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				s.metrics.Inc(MetricIssueRateLimited)
				s.emitAudit(ctx, auditEventIssueRateLimited, false, ErrIssueRateLimited, nil)
				return Token{}, ErrIssueRateLimited
			}
			return Token{}, fmt.Errorf("%w: %v", ErrIssueFailed, err)
		}
	}

	start := time.Now()
	tok, err := s.issue()
	s.metrics.ObserveIssueLatency(time.Since(start))

	if err != nil {
		s.metrics.Inc(MetricIssueFailure)
		return Token{}, err
	}

	s.metrics.Inc(MetricIssueSuccess)
	return tok, nil
}

// Discard marks the session unusable. Subsequent GetValidToken calls fail
// fast with [ErrSessionDiscarded]. An in-flight re-issuance is not aborted;
// its waiters still receive the shared outcome. Discard is idempotent.
func (s *Session) Discard() {
	s.mu.Lock()
	already := s.discarded
	s.discarded = true
	s.mu.Unlock()

	if already {
		return
	}

	s.metrics.Inc(MetricSessionDiscarded)
	s.emitAudit(context.Background(), auditEventSessionDiscarded, true, nil, nil)
}

// State reports the current coordinator state. Staleness is evaluated
// against the clock at call time.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.discarded:
		return SessionDiscarded
	case s.inflight != nil:
		return SessionRefreshing
	case s.current.ExpiresAt.Sub(s.now()) > s.threshold:
		return SessionFresh
	default:
		return SessionStale
	}
}

// ID returns the session's correlation identifier used in audit events.
func (s *Session) ID() string {
	return s.id
}

// Subject returns the subject identity this session impersonates.
func (s *Session) Subject() string {
	return s.subject
}

// ExpiresAt returns the expiry of the currently held token.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.ExpiresAt
}

func (s *Session) emitAudit(ctx context.Context, eventType string, success bool, cause error, metadata func() map[string]string) {
	if s.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   s.subject,
		SessionID: s.id,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	s.audit.Emit(ctx, event)
}
