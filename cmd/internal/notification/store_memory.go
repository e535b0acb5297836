package notification

import (
	"context"
	"sync"

	"pulse/cmd/internal/presence"
)

// InMemoryStore is the dev/test fallback read-state store. It tracks unread
// counts per (user, room) and zeroes them on MarkRead.
type InMemoryStore struct {
	mu  sync.Mutex
	dbs map[string]map[string]map[string]int // db -> user -> room -> unread
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{dbs: make(map[string]map[string]map[string]int)}
}

// AddUnread bumps the unread count for (user, room). Test helper and dev
// stand-in for the message path, which lives outside this server.
func (s *InMemoryStore) AddUnread(db, user, room string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.dbs[db]
	if m == nil {
		m = make(map[string]map[string]int)
		s.dbs[db] = m
	}
	rooms := m[user]
	if rooms == nil {
		rooms = make(map[string]int)
		m[user] = rooms
	}
	rooms[room] += n
}

// Unread reports the unread count for (user, room).
func (s *InMemoryStore) Unread(db, user, room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbs[db][user][room]
}

// MarkRead zeroes unread counts for the room, or for every room when room is
// empty or RoomAll.
func (s *InMemoryStore) MarkRead(ctx context.Context, db, user, room string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := s.dbs[db][user]
	if rooms == nil {
		return ctx.Err()
	}
	if room == "" || room == RoomAll {
		for r := range rooms {
			rooms[r] = 0
		}
		return ctx.Err()
	}
	rooms[room] = 0
	return ctx.Err()
}

// Init provisions the database map.
func (s *InMemoryStore) Init(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dbs[db] == nil {
		s.dbs[db] = make(map[string]map[string]int)
	}
	return ctx.Err()
}

// Drop discards the database map.
func (s *InMemoryStore) Drop(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dbs, db)
	return ctx.Err()
}

// EnsureIndexes is a no-op for the in-memory store.
func (s *InMemoryStore) EnsureIndexes(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}
	return ctx.Err()
}
