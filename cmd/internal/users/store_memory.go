package users

import (
	"context"
	"sync"

	"pulse/cmd/internal/presence"
)

type profile struct {
	fullName string
	email    string
	admin    bool
	spaces   []Space
}

// InMemoryStore is the dev/test fallback profile store.
type InMemoryStore struct {
	mu  sync.Mutex
	dbs map[string]map[string]*profile // db -> user -> profile
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{dbs: make(map[string]map[string]*profile)}
}

func (s *InMemoryStore) get(db, user string) *profile {
	m := s.dbs[db]
	if m == nil {
		m = make(map[string]*profile)
		s.dbs[db] = m
	}
	p := m[user]
	if p == nil {
		p = &profile{}
		m[user] = p
	}
	return p
}

// SetAdmin sets the admin flag, creating the profile when absent.
func (s *InMemoryStore) SetAdmin(ctx context.Context, db, user string, admin bool) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(db, user).admin = admin
	return ctx.Err()
}

// SetEmail sets the email, creating the profile when absent.
func (s *InMemoryStore) SetEmail(ctx context.Context, db, user, email string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(db, user).email = email
	return ctx.Err()
}

// SetFullName sets the display name, creating the profile when absent.
func (s *InMemoryStore) SetFullName(ctx context.Context, db, user, fullName string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(db, user).fullName = fullName
	return ctx.Err()
}

// FullName returns the display name, or ErrNotFound when the user has none.
func (s *InMemoryStore) FullName(ctx context.Context, db, user string) (string, error) {
	if !presence.ValidDBName(db) {
		return "", presence.ErrBadDatabaseName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.dbs[db]
	if m == nil {
		return "", ErrNotFound
	}
	p := m[user]
	if p == nil || p.fullName == "" {
		return "", ErrNotFound
	}
	return p.fullName, ctx.Err()
}

// SetSpaces replaces the user's space memberships.
func (s *InMemoryStore) SetSpaces(ctx context.Context, db, user string, spaces []Space) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(db, user).spaces = append([]Space(nil), spaces...)
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
		s.dbs[db] = make(map[string]*profile)
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
