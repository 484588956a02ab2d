package engine

import "time"

// DeadlineClock decides whether a timed phase has expired. The phase anchor
// and the event time are both server-assigned unix timestamps; there is no
// independent timer, so a stalled phase only resolves when the next event
// for that chat arrives. The interface exists so a scheduled-timeout
// implementation can replace the lazy one without touching the transitions.
type DeadlineClock interface {
	Expired(anchorUnix, eventUnix int64, limit time.Duration) bool
}

// LazyClock evaluates deadlines reactively from message timestamps.
type LazyClock struct{}

// Expired reports whether more than limit passed between the anchor and
// the event.
func (LazyClock) Expired(anchorUnix, eventUnix int64, limit time.Duration) bool {
	return time.Duration(eventUnix-anchorUnix)*time.Second > limit
}
