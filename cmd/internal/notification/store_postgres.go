package notification

import (
	"context"
	"errors"
	"fmt"

	"pulse/cmd/internal/presence"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE for a reference to a schema that does not exist.
const invalidSchemaName = "3F000"

// PostgresStore implements Store using PostgreSQL, one schema per database
// selector (shared with the presence store's schema).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed read-state store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("notification: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

func notificationsTable(db string) string {
	return pgx.Identifier{"pulse_" + db, "notifications"}.Sanitize()
}

// MarkRead flags the user's notifications as read, per room or wholesale.
func (s *PostgresStore) MarkRead(ctx context.Context, db, user, room string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	if room == "" || room == RoomAll {
		_, err := s.pool.Exec(ctx, fmt.Sprintf(`
			UPDATE %s SET unread = false WHERE username = $1
		`, notificationsTable(db)), user)
		return err
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET unread = false WHERE username = $1 AND room = $2
	`, notificationsTable(db)), user, room)
	return err
}

// Init provisions the notifications table for the named database.
func (s *PostgresStore) Init(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	schema := pgx.Identifier{"pulse_" + db}.Sanitize()
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id        bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			username  text NOT NULL,
			room      text NOT NULL,
			unread    boolean NOT NULL DEFAULT true,
			created_at timestamptz NOT NULL DEFAULT now()
		)
	`, notificationsTable(db)))
	return err
}

// Drop removes the notifications table for the named database. A database
// that was never provisioned is not an error.
func (s *PostgresStore) Drop(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, notificationsTable(db)))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidSchemaName {
		return nil
	}
	return err
}

// EnsureIndexes creates the unread lookup index.
func (s *PostgresStore) EnsureIndexes(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS notifications_unread_idx ON %s (username, room) WHERE unread
	`, notificationsTable(db)))
	return err
}
