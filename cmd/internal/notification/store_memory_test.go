package notification

import (
	"context"
	"errors"
	"testing"

	"pulse/cmd/internal/presence"
)

func TestInMemoryStore_MarkReadSingleRoom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore()
	s.AddUnread("chat", "alice", "room1", 3)
	s.AddUnread("chat", "alice", "room2", 2)

	if err := s.MarkRead(ctx, "chat", "alice", "room1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if got := s.Unread("chat", "alice", "room1"); got != 0 {
		t.Fatalf("room1 = %d, want 0", got)
	}
	if got := s.Unread("chat", "alice", "room2"); got != 2 {
		t.Fatalf("room2 = %d, want 2", got)
	}
}

func TestInMemoryStore_MarkReadAllRooms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore()
	s.AddUnread("chat", "alice", "room1", 3)
	s.AddUnread("chat", "alice", "room2", 2)

	for _, room := range []string{"", RoomAll} {
		s.AddUnread("chat", "alice", "room1", 1)
		if err := s.MarkRead(ctx, "chat", "alice", room); err != nil {
			t.Fatalf("MarkRead(%q): %v", room, err)
		}
		if got := s.Unread("chat", "alice", "room1") + s.Unread("chat", "alice", "room2"); got != 0 {
			t.Fatalf("MarkRead(%q): unread total = %d, want 0", room, got)
		}
	}
}

func TestInMemoryStore_MarkReadUnknownUserIsNoop(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	if err := s.MarkRead(context.Background(), "chat", "nobody", "room1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
}

func TestInMemoryStore_RejectsBadDBName(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	if err := s.MarkRead(context.Background(), "Bad;Name", "alice", "room1"); !errors.Is(err, presence.ErrBadDatabaseName) {
		t.Fatalf("expected ErrBadDatabaseName, got %v", err)
	}
}
