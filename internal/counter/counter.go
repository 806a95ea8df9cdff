// Package counter maintains the per-location unread counters that back the
// folder badges, and repairs them when a batch job is cancelled.
package counter

import "github.com/matheus3301/mailcount/internal/folder"

// UnreadLocation is the cached unread count of one location. Count is never
// negative.
type UnreadLocation struct {
	Location folder.Location
	Count    int
}

// Increment adds one unread message.
func (u *UnreadLocation) Increment() {
	u.Count++
}

// Decrement removes n unread messages, stopping at zero.
func (u *UnreadLocation) Decrement(n int) {
	u.Count -= n
	if u.Count < 0 {
		u.Count = 0
	}
}

// Store persists unread counters. FindUnreadLocation returns nil, nil when
// no counter exists for loc.
type Store interface {
	FindUnreadLocation(loc folder.Location) (*UnreadLocation, error)
	SaveUnreadLocation(u *UnreadLocation) error
}
