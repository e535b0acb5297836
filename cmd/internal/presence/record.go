package presence

import (
	"strings"
	"time"
)

// AnonymousPrefix marks a user identifier as a guest ("demo") session.
// Guest sessions are partitioned from authenticated ones for presence
// purposes: each class only ever sees its own kind as active.
const AnonymousPrefix = "__anonim_"

// Record is the single active session tracked for a user.
//
// Token doubles as the record's primary key; Validity is the last
// heartbeat/creation time and is only ever moved forward.
type Record struct {
	User      string
	Token     string
	Validity  time.Time
	Anonymous bool
}

// IsAnonymous reports whether a user identifier carries the guest prefix.
func IsAnonymous(user string) bool {
	return strings.HasPrefix(user, AnonymousPrefix)
}
