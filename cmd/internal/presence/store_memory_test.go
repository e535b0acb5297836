package presence

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestInMemoryStore_UpsertReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore()
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
		t.Fatalf("expected exactly one record for alice, got %v", active)
	}
}

func TestInMemoryStore_RefreshRequiresExactPair(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore()
	t0 := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	if err := s.Upsert(ctx, "chat", t0, "alice", "T1"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Wrong token: validity must not move.
	if err := s.Refresh(ctx, "chat", t0.Add(time.Minute), "alice", "T2"); err != nil {
		t.Fatalf("Refresh wrong token: %v", err)
	}
	active, _ := s.ActiveSince(ctx, "chat", false, t0.Add(time.Second))
	if len(active) != 0 {
		t.Fatalf("validity moved on token mismatch: %v", active)
	}

	if err := s.Refresh(ctx, "chat", t0.Add(time.Minute), "alice", "T1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	active, _ = s.ActiveSince(ctx, "chat", false, t0.Add(time.Second))
	if !slices.Equal(active, []string{"alice"}) {
		t.Fatalf("validity did not move on match: %v", active)
	}
}

func TestInMemoryStore_DropAndDBIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore()
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
	if ok, _ := s.Exists(ctx, "staging", "alice", "T1"); !ok {
		t.Fatalf("Drop leaked into another database")
	}
}

func TestInMemoryStore_RejectsBadDBName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore()
	now := time.Now().UTC()

	for _, db := range []string{"", "Chat", "db;drop", "1db", "a b"} {
		if err := s.Upsert(ctx, db, now, "alice", "T1"); err != ErrBadDatabaseName {
			t.Fatalf("Upsert(%q): expected ErrBadDatabaseName, got %v", db, err)
		}
	}
}
