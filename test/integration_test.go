//go:build integration

package test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	scoped "github.com/iAmLakshya/supabase-scoped-clients"
	"github.com/iAmLakshya/supabase-scoped-clients/token"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func integrationConfig() scoped.Config {
	return scoped.Config{
		URL:       "https://proj.supabase.co",
		Key:       "anon-key",
		JWTSecret: strings.Repeat("s", token.MinSecretLen),
	}
}

// TestScopedClientLifecycleWithThrottle exercises the full stack: builder,
// session refresh under concurrency, and the Redis-backed issuance throttle.
func TestScopedClientLifecycleWithThrottle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	clk := &manualClock{t: time.Unix(1_700_000_000, 0)}
	cfg := integrationConfig()

	client, err := scoped.NewBuilder("u1").
		WithConfig(cfg).
		WithExpiry(time.Hour).
		WithRefreshThreshold(60 * time.Second).
		WithClock(clk.Now).
		WithRedis(redisClient).
		WithIssueThrottle(scoped.ThrottleConfig{MaxIssues: 3, Window: time.Minute}).
		WithMetricsEnabled(true).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	// Mint 1 happened during Build. Age the session past the threshold and
	// hit it concurrently: the refresh must coalesce into a single mint.
	clk.Advance(time.Hour - 30*time.Second)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.Do(context.Background(), func(scoped.RemoteClient) error { return nil })
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Do failed: %v", err)
		}
	}

	snapshot := client.MetricsSnapshot()
	if got := snapshot.Counters[scoped.MetricIssueSuccess]; got != 2 {
		t.Fatalf("mints after coalesced refresh = %d, want 2", got)
	}

	// The remote carries a verifiable token for the right subject.
	issuer, err := scoped.NewIssuer(cfg, "", nil, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	remote, err := client.Remote(context.Background())
	if err != nil {
		t.Fatalf("Remote failed: %v", err)
	}
	auth := remote.(*scoped.HeaderRemote).Header().Get("Authorization")
	claims, err := issuer.Verify(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		t.Fatalf("token verification failed: %v", err)
	}
	if got := claims.Subject(); got != "u1" {
		t.Fatalf("sub = %q", got)
	}

	// Mint 3, then the budget of 3 per window is exhausted.
	clk.Advance(time.Hour - 30*time.Second)
	if err := client.Do(context.Background(), func(scoped.RemoteClient) error { return nil }); err != nil {
		t.Fatalf("third mint failed: %v", err)
	}

	clk.Advance(time.Hour - 30*time.Second)
	err = client.Do(context.Background(), func(scoped.RemoteClient) error { return nil })
	if !errors.Is(err, scoped.ErrIssueRateLimited) {
		t.Fatalf("expected ErrIssueRateLimited, got %v", err)
	}
	if got := client.Session().State(); got != scoped.SessionStale {
		t.Fatalf("state after throttled refresh = %v, want stale", got)
	}

	// A new throttle window opens and the stale session recovers.
	mr.FastForward(2 * time.Minute)
	if err := client.Do(context.Background(), func(scoped.RemoteClient) error { return nil }); err != nil {
		t.Fatalf("Do after window reset failed: %v", err)
	}
	if got := client.Session().State(); got != scoped.SessionFresh {
		t.Fatalf("state after recovery = %v, want fresh", got)
	}
}
