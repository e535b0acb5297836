package presence

import (
	"context"
	"log/slog"
	"time"
)

// DefaultWindow is the liveness window: a session whose last heartbeat is
// older than this is no longer considered active.
const DefaultWindow = 10 * time.Second

// Service implements the session lifecycle on top of a Store.
//
// Callers pass "now" explicitly (handlers take it once per request); the
// service itself never reads the clock, which keeps liveness tests exact.
type Service struct {
	log    *slog.Logger
	store  Store
	window time.Duration
}

// NewService constructs a Service. A non-positive window falls back to
// DefaultWindow.
func NewService(log *slog.Logger, store Store, window time.Duration) *Service {
	if log == nil {
		log = slog.Default()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{log: log, store: store, window: window}
}

// Window returns the configured liveness window.
func (s *Service) Window() time.Duration { return s.window }

// Establish registers (user, token) as the user's single active session.
//
// If the exact pair is already current the call is a no-op; otherwise any
// prior record for the user is replaced. This is the single-active-session
// enforcement point: older sessions die at the storage level whether or not
// they are ever notified.
func (s *Service) Establish(ctx context.Context, now time.Time, db, user, tok string) error {
	if user == "" {
		return ErrMissingUser
	}
	if tok == "" {
		return ErrMissingToken
	}

	ok, err := s.store.Exists(ctx, db, user, tok)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	s.log.Debug("presence.establish", "db", db, "user", user)
	return s.store.Upsert(ctx, db, now, user, tok)
}

// Refresh is the heartbeat: it moves the session's validity forward. A
// missing or replaced session is a silent no-op; refresh never establishes.
func (s *Service) Refresh(ctx context.Context, now time.Time, db, user, tok string) error {
	if user == "" {
		return ErrMissingUser
	}
	if tok == "" {
		return ErrMissingToken
	}
	return s.store.Refresh(ctx, db, now, user, tok)
}

// HasSession reports whether a record matching (user, token) exactly exists.
func (s *Service) HasSession(ctx context.Context, db, user, tok string) (bool, error) {
	if user == "" || tok == "" {
		return false, nil
	}
	return s.store.Exists(ctx, db, user, tok)
}

// ActivePeers returns the users currently live within the window, restricted
// to the requesting user's anonymity class and excluding the requester.
func (s *Service) ActivePeers(ctx context.Context, now time.Time, db, user string) ([]string, error) {
	if user == "" {
		return nil, ErrMissingUser
	}

	active, err := s.store.ActiveSince(ctx, db, IsAnonymous(user), now.Add(-s.window))
	if err != nil {
		return nil, err
	}

	peers := active[:0]
	for _, u := range active {
		if u != user {
			peers = append(peers, u)
		}
	}
	return peers, nil
}

// InitDB provisions the named database in the underlying store.
func (s *Service) InitDB(ctx context.Context, db string) error {
	return s.store.Init(ctx, db)
}

// DropDB removes the named database from the underlying store.
func (s *Service) DropDB(ctx context.Context, db string) error {
	return s.store.Drop(ctx, db)
}

// EnsureIndexes creates or updates the store's access-path indexes.
func (s *Service) EnsureIndexes(ctx context.Context, db string) error {
	return s.store.EnsureIndexes(ctx, db)
}
