package scoped

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRemote records every credential application and lets tests assert
// ordering relative to the operation.
type fakeRemote struct {
	mu      sync.Mutex
	applied []string
}

func (f *fakeRemote) ApplyToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, token)
}

func (f *fakeRemote) tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.applied))
	copy(out, f.applied)
	return out
}

func TestClientDoAppliesTokenBeforeOp(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	clk := newFakeClock(t0)

	s := newStubSession(clk, 60*time.Second, nil)
	s.current = Token{Raw: "held-token", ExpiresAt: t0.Add(time.Hour)}

	remote := &fakeRemote{}
	client := &Client{session: s, remote: remote, metrics: s.metrics}

	opRan := false
	err := client.Do(context.Background(), func(r RemoteClient) error {
		opRan = true
		applied := remote.tokens()
		if len(applied) != 1 || applied[0] != "held-token" {
			t.Fatalf("token not applied before op: %v", applied)
		}
		if r != RemoteClient(remote) {
			t.Fatal("op received a different remote")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !opRan {
		t.Fatal("op never ran")
	}
}

func TestClientDoPropagatesOpError(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	clk := newFakeClock(t0)

	s := newStubSession(clk, 60*time.Second, nil)
	s.current = Token{Raw: "held-token", ExpiresAt: t0.Add(time.Hour)}

	client := &Client{session: s, remote: &fakeRemote{}, metrics: s.metrics}

	opErr := errors.New("postgrest said no")
	if err := client.Do(context.Background(), func(RemoteClient) error { return opErr }); !errors.Is(err, opErr) {
		t.Fatalf("expected op error, got %v", err)
	}
}

func TestClientRefreshErrorSkipsRemote(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	clk := newFakeClock(t0)

	issueErr := errors.New("signing backend exploded")
	s := newStubSession(clk, 60*time.Second, func() (Token, error) {
		return Token{}, issueErr
	})
	s.current = Token{Raw: "stale", ExpiresAt: t0}

	remote := &fakeRemote{}
	client := &Client{session: s, remote: remote, metrics: s.metrics}

	err := client.Do(context.Background(), func(RemoteClient) error {
		t.Fatal("op ran despite refresh failure")
		return nil
	})
	if !errors.Is(err, issueErr) {
		t.Fatalf("expected refresh error, got %v", err)
	}
	if got := remote.tokens(); len(got) != 0 {
		t.Fatalf("remote touched on refresh failure: %v", got)
	}
}

func TestClientRefreshWindowEndToEnd(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	clk := newFakeClock(t0)
	remote := &fakeRemote{}

	client, err := NewBuilder("u1").
		WithConfig(testConfig()).
		WithExpiry(time.Hour).
		WithRefreshThreshold(60 * time.Second).
		WithRemote(remote).
		WithClock(clk.Now).
		WithMetricsEnabled(true).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if got := client.MetricsSnapshot().Counters[MetricIssueSuccess]; got != 1 {
		t.Fatalf("initial mint counter = %d, want 1", got)
	}

	// Well inside the validity: no refresh.
	clk.Advance(10 * time.Second)
	if err := client.Do(context.Background(), func(RemoteClient) error { return nil }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got := client.MetricsSnapshot().Counters[MetricIssueSuccess]; got != 1 {
		t.Fatalf("mint counter after fresh access = %d, want 1", got)
	}

	// Ten seconds of lifetime left, threshold is sixty: refresh fires.
	clk.Advance(3580 * time.Second)
	if err := client.Do(context.Background(), func(RemoteClient) error { return nil }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	snapshot := client.MetricsSnapshot()
	if got := snapshot.Counters[MetricIssueSuccess]; got != 2 {
		t.Fatalf("mint counter after stale access = %d, want 2", got)
	}
	if got := snapshot.Counters[MetricRefreshSuccess]; got != 1 {
		t.Fatalf("refresh counter = %d, want 1", got)
	}

	wantExpiry := clk.Now().Add(time.Hour)
	if got := client.Session().ExpiresAt(); !got.Equal(wantExpiry) {
		t.Fatalf("refreshed expiry = %v, want %v", got, wantExpiry)
	}

	applied := remote.tokens()
	if len(applied) != 2 {
		t.Fatalf("applied %d tokens, want 2", len(applied))
	}
	if applied[0] == applied[1] {
		t.Fatal("refresh reused the stale token")
	}
}

func TestHeaderRemote(t *testing.T) {
	remote := NewHeaderRemote(testConfig())

	if got := remote.Header().Get("apikey"); got != "anon-key" {
		t.Fatalf("apikey = %q", got)
	}

	remote.ApplyToken("tok-1")
	remote.ApplyToken("tok-2")
	if got := remote.Header().Get("Authorization"); got != "Bearer tok-2" {
		t.Fatalf("authorization = %q", got)
	}

	// Header returns a copy; mutating it must not leak back.
	h := remote.Header()
	h.Set("Authorization", "Bearer mutated")
	if got := remote.Header().Get("Authorization"); got != "Bearer tok-2" {
		t.Fatalf("header copy leaked back: %q", got)
	}
}

func TestNewRemoteOneShot(t *testing.T) {
	cfg := testConfig()

	remote, err := NewRemote("u1", cfg)
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}

	auth := remote.Header().Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		t.Fatalf("authorization = %q", auth)
	}

	issuer, err := NewIssuer(cfg, "", nil, DefaultValidity)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	claims, err := issuer.Verify(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		t.Fatalf("minted token failed verification: %v", err)
	}
	if got := claims.Subject(); got != "u1" {
		t.Fatalf("sub = %q", got)
	}
}

func TestNewRemoteEmptySubject(t *testing.T) {
	if _, err := NewRemote("", testConfig()); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
}
