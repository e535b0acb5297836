// Package presence tracks one active session per user and answers windowed
// liveness queries for the chat backend.
//
// A session record is created when the frontend registers a user's token,
// refreshed by heartbeats, and replaced wholesale when the same user
// establishes a new session. There is no reaper: a record is "live" iff its
// last heartbeat is within the configured window, computed at read time.
//
// Session transitions (logout, status change) produce Events that are handed
// to a Notifier for fire-and-forget delivery; the realtime transport lives
// elsewhere.
package presence
