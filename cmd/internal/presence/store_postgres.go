package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL. Each database selector
// maps to its own schema so logical chat databases stay isolated inside one
// physical database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("presence: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

func schemaFor(db string) string {
	return "pulse_" + db
}

func sessionsTable(db string) string {
	return pgx.Identifier{schemaFor(db), "sessions"}.Sanitize()
}

// Upsert inserts the session record, atomically replacing any prior record
// for the same user. The unique constraint on username is what closes the
// remove-then-insert race of naive implementations.
func (s *PostgresStore) Upsert(ctx context.Context, db string, now time.Time, user, token string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (token, username, validity, is_anonymous)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			token = EXCLUDED.token,
			validity = EXCLUDED.validity,
			is_anonymous = EXCLUDED.is_anonymous
	`, sessionsTable(db)), token, user, now, IsAnonymous(user))
	return err
}

// Exists reports whether the exact (user, token) pair is present.
func (s *PostgresStore) Exists(ctx context.Context, db, user, token string) (bool, error) {
	if !ValidDBName(db) {
		return false, ErrBadDatabaseName
	}

	var one int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT 1 FROM %s WHERE username = $1 AND token = $2
	`, sessionsTable(db)), user, token).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Refresh moves validity forward for the matching record; zero rows affected
// is not an error.
func (s *PostgresStore) Refresh(ctx context.Context, db string, now time.Time, user, token string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET validity = $1 WHERE username = $2 AND token = $3
	`, sessionsTable(db)), now, user, token)
	return err
}

// ActiveSince returns users of the anonymity class heard from strictly after cutoff.
func (s *PostgresStore) ActiveSince(ctx context.Context, db string, anonymous bool, cutoff time.Time) ([]string, error) {
	if !ValidDBName(db) {
		return nil, ErrBadDatabaseName
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT username FROM %s
		WHERE is_anonymous = $1 AND validity > $2
		ORDER BY username
	`, sessionsTable(db)), anonymous, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Init provisions the schema and sessions table for the named database.
func (s *PostgresStore) Init(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	schema := pgx.Identifier{schemaFor(db)}.Sanitize()
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			token        text PRIMARY KEY,
			username     text NOT NULL UNIQUE,
			validity     timestamptz NOT NULL,
			is_anonymous boolean NOT NULL
		)
	`, sessionsTable(db)))
	return err
}

// Drop removes the schema for the named database and everything in it.
func (s *PostgresStore) Drop(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	schema := pgx.Identifier{schemaFor(db)}.Sanitize()
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, schema))
	return err
}

// EnsureIndexes creates the liveness-query index. The by-user access path is
// already covered by the unique constraint on username.
func (s *PostgresStore) EnsureIndexes(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	idx := pgx.Identifier{"sessions_presence_idx"}.Sanitize()
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (is_anonymous, validity)
	`, idx, sessionsTable(db)))
	return err
}
