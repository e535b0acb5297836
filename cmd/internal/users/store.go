// Package users holds the profile bookkeeping the chat frontend pushes to
// this server: full names, emails, admin flags, and space memberships.
// It is plain CRUD delegation; presence state lives elsewhere.
package users

import (
	"context"
	"errors"
)

// SpacePrefix marks a user identifier that actually names a space room.
const SpacePrefix = "space-"

// Space is one space membership entry pushed by the frontend.
type Space struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	GroupID     string `json:"groupId"`
	ShortName   string `json:"shortName"`
}

// ErrNotFound is returned when a user has no profile row.
var ErrNotFound = errors.New("user not found")

// Store abstracts profile persistence. Every method takes a database
// selector, mirroring the session store.
type Store interface {
	SetAdmin(ctx context.Context, db, user string, admin bool) error
	SetEmail(ctx context.Context, db, user, email string) error
	SetFullName(ctx context.Context, db, user, fullName string) error
	FullName(ctx context.Context, db, user string) (string, error)
	SetSpaces(ctx context.Context, db, user string, spaces []Space) error

	Init(ctx context.Context, db string) error
	Drop(ctx context.Context, db string) error
	EnsureIndexes(ctx context.Context, db string) error
}
