// Package notification keeps the unread-notification bookkeeping the chat
// frontend delegates to this server. The only operation it needs from here
// is marking a user's notifications as read, per room or wholesale.
package notification

import "context"

// RoomAll marks every room at once.
const RoomAll = "ALL"

// Store abstracts read-state persistence. Every method takes a database
// selector, mirroring the session store.
type Store interface {
	// MarkRead flags the user's notifications for room as read. An empty
	// room or RoomAll covers all rooms.
	MarkRead(ctx context.Context, db, user, room string) error

	Init(ctx context.Context, db string) error
	Drop(ctx context.Context, db string) error
	EnsureIndexes(ctx context.Context, db string) error
}
