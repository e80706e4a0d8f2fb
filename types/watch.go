package types

import (
	"strings"
	"time"
)

// WatchEvent describes a change made through the facade.
type WatchEvent struct {
	Type    EventType
	Path    string
	OldPath string // set on the create half of a rename
	Time    time.Time
}

// EventType is a bitmask of change kinds.
type EventType uint32

const (
	EventCreate EventType = 1 << iota
	EventChange
	EventDelete

	EventAll EventType = EventCreate | EventChange | EventDelete
)

func (e EventType) String() string {
	names := []struct {
		bit  EventType
		name string
	}{
		{EventCreate, "CREATE"},
		{EventChange, "CHANGE"},
		{EventDelete, "DELETE"},
	}
	var parts []string
	for _, n := range names {
		if e&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Matches reports whether the event type matches any bit in the mask.
func (e EventType) Matches(mask EventType) bool {
	return e&mask != 0
}
