package presence

import "errors"

var (
	// ErrBadDatabaseName is returned when a database selector does not
	// satisfy the identifier grammar accepted by the stores.
	ErrBadDatabaseName = errors.New("bad database name")

	// ErrMissingUser is returned when an operation is invoked without a
	// user identifier.
	ErrMissingUser = errors.New("missing user")

	// ErrMissingToken is returned when an operation is invoked without a
	// session token.
	ErrMissingToken = errors.New("missing token")
)
