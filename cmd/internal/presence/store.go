package presence

import (
	"context"
	"regexp"
	"time"
)

// Store abstracts persistence for session records.
//
// Every method takes a database selector so one server can serve several
// logical chat databases. Implementations must make Upsert atomic per user:
// establishing a new session replaces any prior record for that user in a
// single step, never leaving two records behind under concurrent calls.
type Store interface {
	// Upsert inserts the record for (user, token) with validity = now,
	// replacing any existing record for user.
	Upsert(ctx context.Context, db string, now time.Time, user, token string) error

	// Exists reports whether a record matching both user and token exactly
	// is present, regardless of liveness.
	Exists(ctx context.Context, db, user, token string) (bool, error)

	// Refresh sets validity = now on the record matching (user, token).
	// It never creates a record: no match is a silent no-op.
	Refresh(ctx context.Context, db string, now time.Time, user, token string) error

	// ActiveSince returns the users of the given anonymity class whose
	// validity is strictly after cutoff.
	ActiveSince(ctx context.Context, db string, anonymous bool, cutoff time.Time) ([]string, error)

	// Init provisions the named database.
	Init(ctx context.Context, db string) error

	// Drop removes the named database and all of its records.
	Drop(ctx context.Context, db string) error

	// EnsureIndexes creates or updates the access-path indexes for the
	// named database (by user, and by (anonymous, validity)).
	EnsureIndexes(ctx context.Context, db string) error
}

var dbNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidDBName reports whether a database selector is acceptable to the
// stores. The grammar is deliberately strict because Postgres uses the
// selector as a schema name.
func ValidDBName(db string) bool {
	return dbNameRE.MatchString(db)
}
