// Package system provides the wall clock used to stamp stored records.
package system

import "time"

// Clock returns UTC time truncated to microseconds, the precision every store backend keeps,
// so a timestamp reads back exactly as written.
type Clock struct{}

// New creates a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
