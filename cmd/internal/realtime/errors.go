package realtime

import "errors"

var errUnknownEventKind = errors.New("unknown event kind")
