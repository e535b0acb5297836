package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is the dev/test fallback when no external store is
// configured. One map per database selector, one record per user.
type InMemoryStore struct {
	mu  sync.Mutex
	dbs map[string]map[string]Record // db -> user -> record
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{dbs: make(map[string]map[string]Record)}
}

func (s *InMemoryStore) sessions(db string) map[string]Record {
	m := s.dbs[db]
	if m == nil {
		m = make(map[string]Record)
		s.dbs[db] = m
	}
	return m
}

// Upsert replaces any record for user with a fresh one. The map key is the
// user, so the replace step is atomic by construction.
func (s *InMemoryStore) Upsert(ctx context.Context, db string, now time.Time, user, token string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions(db)[user] = Record{
		User:      user,
		Token:     token,
		Validity:  now,
		Anonymous: IsAnonymous(user),
	}
	return nil
}

// Exists reports whether the exact (user, token) pair is present.
func (s *InMemoryStore) Exists(ctx context.Context, db, user, token string) (bool, error) {
	if !ValidDBName(db) {
		return false, ErrBadDatabaseName
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions(db)[user]
	return ok && rec.Token == token, nil
}

// Refresh moves validity forward for a matching record; no match is a no-op.
func (s *InMemoryStore) Refresh(ctx context.Context, db string, now time.Time, user, token string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.sessions(db)
	if rec, ok := m[user]; ok && rec.Token == token {
		rec.Validity = now
		m[user] = rec
	}
	return nil
}

// ActiveSince returns users of the anonymity class heard from strictly after cutoff.
func (s *InMemoryStore) ActiveSince(ctx context.Context, db string, anonymous bool, cutoff time.Time) ([]string, error) {
	if !ValidDBName(db) {
		return nil, ErrBadDatabaseName
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var users []string
	for _, rec := range s.sessions(db) {
		if rec.Anonymous == anonymous && rec.Validity.After(cutoff) {
			users = append(users, rec.User)
		}
	}
	sort.Strings(users)
	return users, nil
}

// Init provisions the database map.
func (s *InMemoryStore) Init(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions(db)
	return nil
}

// Drop discards the database map and all records in it.
func (s *InMemoryStore) Drop(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dbs, db)
	return nil
}

// EnsureIndexes is a no-op for the in-memory store.
func (s *InMemoryStore) EnsureIndexes(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}
	return ctx.Err()
}
