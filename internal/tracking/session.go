package tracking

import (
	"time"

	"github.com/google/uuid"
)

// Session groups the route points of one continuous period of use
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	// ResumedAt is the last time the session was (re)started; boundaries are measured from it
	ResumedAt time.Time `json:"resumedAt"`
}

// NewSession starts a session at now
func NewSession(now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		ResumedAt: now,
	}
}

// IsNewSession reports whether now belongs to a different session than one
// last started at prev: either more than gap has elapsed, or the calendar
// day (in now's location) has changed. A zero prev always starts a session.
func IsNewSession(prev, now time.Time, gap time.Duration) bool {
	if prev.IsZero() {
		return true
	}
	if now.Sub(prev) > gap {
		return true
	}
	return !SameDay(prev, now)
}

// SameDay compares calendar dates in b's location
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateKey formats the calendar date of t as YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
