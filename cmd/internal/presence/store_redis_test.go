package presence

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return s
}

func TestRedisStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if err := s.Upsert(ctx, "chat", now, "alice", "T1"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, "chat", now, "alice", "T2"); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	if ok, _ := s.Exists(ctx, "chat", "alice", "T1"); ok {
		t.Fatalf("replaced token still present")
	}
	if ok, _ := s.Exists(ctx, "chat", "alice", "T2"); !ok {
		t.Fatalf("current token missing")
	}

	active, err := s.ActiveSince(ctx, "chat", false, now.Add(-time.Second))
	if err != nil {
		t.Fatalf("ActiveSince: %v", err)
	}
	if !slices.Equal(active, []string{"alice"}) {
		t.Fatalf("expected exactly one entry for alice, got %v", active)
	}
}

func TestRedisStore_WindowCutoffIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)
	t0 := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if err := s.Upsert(ctx, "chat", t0, "alice", "T1"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	active, err := s.ActiveSince(ctx, "chat", false, t0.Add(-5*time.Second))
	if err != nil {
		t.Fatalf("ActiveSince: %v", err)
	}
	if !slices.Contains(active, "alice") {
		t.Fatalf("expected alice inside the window: %v", active)
	}

	// cutoff == validity: no longer live.
	active, err = s.ActiveSince(ctx, "chat", false, t0)
	if err != nil {
		t.Fatalf("ActiveSince at cutoff: %v", err)
	}
	if slices.Contains(active, "alice") {
		t.Fatalf("alice live at exact cutoff: %v", active)
	}
}

func TestRedisStore_RefreshRequiresExactPair(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)
	t0 := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if err := s.Upsert(ctx, "chat", t0, "alice", "T1"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Refresh(ctx, "chat", t0.Add(time.Minute), "alice", "stale"); err != nil {
		t.Fatalf("Refresh stale token: %v", err)
	}
	if err := s.Refresh(ctx, "chat", t0.Add(time.Minute), "nobody", "T1"); err != nil {
		t.Fatalf("Refresh unknown user: %v", err)
	}

	active, _ := s.ActiveSince(ctx, "chat", false, t0.Add(time.Second))
	if len(active) != 0 {
		t.Fatalf("validity moved without an exact match: %v", active)
	}

	if err := s.Refresh(ctx, "chat", t0.Add(time.Minute), "alice", "T1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	active, _ = s.ActiveSince(ctx, "chat", false, t0.Add(time.Second))
	if !slices.Equal(active, []string{"alice"}) {
		t.Fatalf("validity did not move on match: %v", active)
	}
}

func TestRedisStore_AnonymityClassesAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	guest := AnonymousPrefix + "42"
	if err := s.Upsert(ctx, "chat", now, "alice", "T1"); err != nil {
		t.Fatalf("Upsert alice: %v", err)
	}
	if err := s.Upsert(ctx, "chat", now, guest, "T2"); err != nil {
		t.Fatalf("Upsert guest: %v", err)
	}

	auth, err := s.ActiveSince(ctx, "chat", false, now.Add(-time.Second))
	if err != nil {
		t.Fatalf("ActiveSince auth: %v", err)
	}
	if !slices.Equal(auth, []string{"alice"}) {
		t.Fatalf("auth class = %v, want [alice]", auth)
	}

	anon, err := s.ActiveSince(ctx, "chat", true, now.Add(-time.Second))
	if err != nil {
		t.Fatalf("ActiveSince anon: %v", err)
	}
	if !slices.Equal(anon, []string{guest}) {
		t.Fatalf("anon class = %v, want [%s]", anon, guest)
	}
}

func TestRedisStore_Drop(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)
	now := time.Now().UTC()

	if err := s.Upsert(ctx, "chat", now, "alice", "T1"); err != nil {
		t.Fatalf("Upsert chat: %v", err)
	}
	if err := s.Upsert(ctx, "staging", now, "alice", "T1"); err != nil {
		t.Fatalf("Upsert staging: %v", err)
	}

	if err := s.Drop(ctx, "chat"); err != nil {
		t.Fatalf("Drop: %v", err)
	}

	if ok, _ := s.Exists(ctx, "chat", "alice", "T1"); ok {
		t.Fatalf("record survived Drop")
	}
	active, _ := s.ActiveSince(ctx, "chat", false, now.Add(-time.Second))
	if len(active) != 0 {
		t.Fatalf("presence index survived Drop: %v", active)
	}
	if ok, _ := s.Exists(ctx, "staging", "alice", "T1"); !ok {
		t.Fatalf("Drop leaked into another database")
	}
}
