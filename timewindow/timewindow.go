// Package timewindow evaluates UTC time-of-day access windows.
package timewindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/errors/v5"
)

const minutesPerDay = 24 * 60

// Clock is a time of day expressed in minutes after midnight UTC.
type Clock int

// NoClock represents an absent bound.
const NoClock Clock = -1

// Valid reports if c is a time of day rather than an absent bound.
func (c Clock) Valid() bool {
	return c >= 0 && c < minutesPerDay
}

// String formats c as HH:MM. An absent bound formats as the empty string.
func (c Clock) String() string {
	if !c.Valid() {
		return ""
	}

	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MinutesOf returns the UTC minutes-of-day of t.
func MinutesOf(t time.Time) Clock {
	t = t.UTC()

	return Clock(t.Hour()*60 + t.Minute())
}

// ParseClock parses a stored window bound. Accepted forms are "HH:MM", "HH:MM:SS" and either
// of those prefixed with an ISO date ("2024-05-01T09:30", "2024-05-01T09:30:00Z"). A trailing
// zone designator must be UTC. An empty string yields NoClock.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoClock, nil
	}

	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "Z")
	s = strings.TrimSuffix(s, "+00:00")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return NoClock, errors.Newf("invalid time of day %q", s)
	}

	h, ok := clockField(parts[0], 23)
	if !ok {
		return NoClock, errors.Newf("invalid hour in %q", s)
	}
	m, ok := clockField(parts[1], 59)
	if !ok {
		return NoClock, errors.Newf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if _, ok := clockField(parts[2], 59); !ok {
			return NoClock, errors.Newf("invalid second in %q", s)
		}
	}

	return Clock(h*60 + m), nil
}

// clockField parses a two digit field no greater than limit.
func clockField(s string, limit int) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	n, _ := strconv.Atoi(s)

	return n, n <= limit
}

// IsWithinWindow reports if now falls inside [start, end]. An absent bound, or start equal to
// end, means the window is unrestricted. When start is after end the window wraps midnight.
func IsWithinWindow(now, start, end Clock) bool {
	if !start.Valid() || !end.Valid() || start == end {
		return true
	}

	if start < end {
		return start <= now && now <= end
	}

	return now >= start || now <= end
}

// Window is a pair of stored window bounds.
type Window struct {
	Start Clock
	End   Clock
}

// NewWindow parses the stored start and end bounds. A malformed bound is an error.
func NewWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, errors.Wrap(err, "ParseClock() start")
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, errors.Wrap(err, "ParseClock() end")
	}

	return Window{Start: s, End: e}, nil
}

// Unrestricted reports if the window admits every time of day.
func (w Window) Unrestricted() bool {
	return !w.Start.Valid() || !w.End.Valid() || w.Start == w.End
}

// Contains reports if t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return IsWithinWindow(MinutesOf(t), w.Start, w.End)
}
