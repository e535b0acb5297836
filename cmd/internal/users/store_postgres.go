package users

import (
	"context"
	"encoding/json"
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

// NewPostgresStore creates a Postgres-backed profile store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("users: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

func usersTable(db string) string {
	return pgx.Identifier{"pulse_" + db, "users"}.Sanitize()
}

func (s *PostgresStore) upsertColumn(ctx context.Context, db, user, column string, value any) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	col := pgx.Identifier{column}.Sanitize()
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (username, %s) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET %s = EXCLUDED.%s
	`, usersTable(db), col, col, col), user, value)
	return err
}

// SetAdmin sets the admin flag, creating the profile row when absent.
func (s *PostgresStore) SetAdmin(ctx context.Context, db, user string, admin bool) error {
	return s.upsertColumn(ctx, db, user, "is_admin", admin)
}

// SetEmail sets the email, creating the profile row when absent.
func (s *PostgresStore) SetEmail(ctx context.Context, db, user, email string) error {
	return s.upsertColumn(ctx, db, user, "email", email)
}

// SetFullName sets the display name, creating the profile row when absent.
func (s *PostgresStore) SetFullName(ctx context.Context, db, user, fullName string) error {
	return s.upsertColumn(ctx, db, user, "fullname", fullName)
}

// FullName returns the display name, or ErrNotFound when the user has none.
func (s *PostgresStore) FullName(ctx context.Context, db, user string) (string, error) {
	if !presence.ValidDBName(db) {
		return "", presence.ErrBadDatabaseName
	}

	var name *string
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT fullname FROM %s WHERE username = $1
	`, usersTable(db)), user).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if name == nil || *name == "" {
		return "", ErrNotFound
	}
	return *name, nil
}

// SetSpaces replaces the user's space memberships (stored as jsonb).
func (s *PostgresStore) SetSpaces(ctx context.Context, db, user string, spaces []Space) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	raw, err := json.Marshal(spaces)
	if err != nil {
		return err
	}
	return s.upsertColumn(ctx, db, user, "spaces", raw)
}

// Init provisions the users table for the named database.
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
			username text PRIMARY KEY,
			fullname text,
			email    text,
			is_admin boolean NOT NULL DEFAULT false,
			spaces   jsonb NOT NULL DEFAULT '[]'::jsonb
		)
	`, usersTable(db)))
	return err
}

// Drop removes the users table for the named database. A database that was
// never provisioned is not an error.
func (s *PostgresStore) Drop(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, usersTable(db)))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidSchemaName {
		return nil
	}
	return err
}

// EnsureIndexes creates the email lookup index.
func (s *PostgresStore) EnsureIndexes(ctx context.Context, db string) error {
	if !presence.ValidDBName(db) {
		return presence.ErrBadDatabaseName
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS users_email_idx ON %s (email)
	`, usersTable(db)))
	return err
}
