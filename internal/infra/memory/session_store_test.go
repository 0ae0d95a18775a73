package memory

import (
	"context"
	"testing"
	"time"

	"contest-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)

	session := app.NewSession("s1", "u1", "Alice")
	store.Save(ctx, session)
	got, ok := store.Get(ctx, "s1")
	if !ok || got != session {
		t.Fatalf("expected session present")
	}

	store.Delete(ctx, "s1")
	if _, ok := store.Get(ctx, "s1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store := NewSessionStoreWithClock(time.Minute, func() time.Time { return now })

	store.Save(ctx, app.NewSession("s1", "u1", "Alice"))

	now = now.Add(50 * time.Second)
	if _, ok := store.Get(ctx, "s1"); !ok {
		t.Fatalf("expected session alive within ttl")
	}

	// The lookup above refreshed the idle timer.
	now = now.Add(50 * time.Second)
	if _, ok := store.Get(ctx, "s1"); !ok {
		t.Fatalf("expected session alive after refresh")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(ctx, "s1"); ok {
		t.Fatalf("expected idle session to expire")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired session dropped, len=%d", store.Len())
	}
}
