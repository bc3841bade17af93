// Package domain defines the issue-store types and ports
package domain

import "time"

// Row is one observed issue state, keyed by (Key, UpdatedAt)
// Rows are never removed; deletion flips Deleted on the latest row
type Row struct {
	Key            string
	UpdatedAt      time.Time
	Status         string
	Assignee       string
	FixVersions    []string
	LastEventType  string
	IdempotencyKey string
	ReceivedAt     time.Time
	Deleted        bool
}

// TombstoneEvent describes an issue deletion delivery
// UpdatedAt is the delete event's own timestamp, used only when the issue
// has no prior row to tombstone in place
type TombstoneEvent struct {
	Key            string
	UpdatedAt      time.Time
	EventType      string
	IdempotencyKey string
	ReceivedAt     time.Time
}
