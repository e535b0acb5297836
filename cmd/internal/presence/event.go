package presence

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind is the closed set of presence event types. Keeping it a typed
// constant (not a free string) makes dispatch exhaustive.
type Kind int

const (
	// KindSessionEnding tells the other sessions of a user that one of
	// their sessions is terminating.
	KindSessionEnding Kind = iota
	// KindStatusChanged tells everyone that a user's status changed.
	KindStatusChanged
)

func (k Kind) String() string {
	switch k {
	case KindSessionEnding:
		return "session_ending"
	case KindStatusChanged:
		return "status_changed"
	default:
		return "unknown"
	}
}

// Audience selects who receives an event.
type Audience int

const (
	// AudienceUser targets every session belonging to TargetUser.
	AudienceUser Audience = iota
	// AudienceAll targets every connected user.
	AudienceAll
)

// StatusOffline is the status payload published when a user's last session
// logs out.
const StatusOffline = "offline"

// Event describes a session-state transition. Events are ephemeral: they are
// handed to a Notifier and never persisted.
type Event struct {
	ID         string
	Kind       Kind
	TargetUser string
	Actor      string
	Timestamp  time.Time

	// SessionID is set for KindSessionEnding.
	SessionID string
	// Status is set for KindStatusChanged.
	Status string

	Audience Audience
}

// NewSessionEnding builds the event announcing a terminating session to the
// user's other sessions.
func NewSessionEnding(now time.Time, user, sessionID string) Event {
	return Event{
		ID:         ulid.Make().String(),
		Kind:       KindSessionEnding,
		TargetUser: user,
		Actor:      user,
		Timestamp:  now,
		SessionID:  sessionID,
		Audience:   AudienceUser,
	}
}

// NewStatusChanged builds the event announcing a user status transition to
// all users.
func NewStatusChanged(now time.Time, user, status string) Event {
	return Event{
		ID:         ulid.Make().String(),
		Kind:       KindStatusChanged,
		TargetUser: user,
		Actor:      user,
		Timestamp:  now,
		Status:     status,
		Audience:   AudienceAll,
	}
}

// Notifier dispatches presence events to whatever realtime transport is
// wired in. Dispatch is fire-and-forget: implementations must not block and
// must swallow delivery failures, so a logout never fails because a
// notification could not be delivered.
type Notifier interface {
	Publish(Event)
}

// NopNotifier drops every event. Useful when no realtime transport is wired.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(Event) {}
