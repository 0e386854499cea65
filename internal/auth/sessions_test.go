package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/huddlehq/huddle/internal/cache"
	"github.com/huddlehq/huddle/pkg/config"
)

func newTestSessions(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	redisCache, err := cache.New(&config.RedisConfig{
		URL:     "redis://" + srv.Addr(),
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { redisCache.Close() })
	return NewSessionStore(redisCache, time.Minute), srv
}

func TestSessionCheck(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	if err := sessions.Put(ctx, 7, "tok-a"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := sessions.Check(ctx, 7, "tok-a")
	if err != nil || !ok {
		t.Errorf("Check(current token) = %v, %v, want true, nil", ok, err)
	}

	ok, err = sessions.Check(ctx, 7, "tok-b")
	if err != nil || ok {
		t.Errorf("Check(stale token) = %v, %v, want false, nil", ok, err)
	}

	// No session at all is an ordinary deny, not an error.
	ok, err = sessions.Check(ctx, 8, "tok-a")
	if err != nil || ok {
		t.Errorf("Check(no session) = %v, %v, want false, nil", ok, err)
	}
}

func TestSessionCheckRedisDown(t *testing.T) {
	sessions, srv := newTestSessions(t)
	ctx := context.Background()

	if err := sessions.Put(ctx, 7, "tok-a"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	srv.Close()

	// A Redis outage must not masquerade as a revoked session.
	ok, err := sessions.Check(ctx, 7, "tok-a")
	if err == nil {
		t.Fatal("Check after redis outage returned nil error")
	}
	if ok {
		t.Error("Check after redis outage reported a valid session")
	}
}

func TestSessionCheckCacheDisabled(t *testing.T) {
	sessions := NewSessionStore(nil, time.Minute)
	ctx := context.Background()

	// Stateless mode: tokens stand on their signature alone.
	ok, err := sessions.Check(ctx, 7, "anything")
	if err != nil || !ok {
		t.Errorf("Check with disabled cache = %v, %v, want true, nil", ok, err)
	}
	if err := sessions.Put(ctx, 7, "tok"); err != nil {
		t.Errorf("Put with disabled cache: %v", err)
	}
	if err := sessions.Drop(ctx, 7); err != nil {
		t.Errorf("Drop with disabled cache: %v", err)
	}
}

func TestSessionDrop(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	if err := sessions.Put(ctx, 7, "tok-a"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := sessions.Drop(ctx, 7); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	ok, err := sessions.Check(ctx, 7, "tok-a")
	if err != nil || ok {
		t.Errorf("Check after Drop = %v, %v, want false, nil", ok, err)
	}
}
