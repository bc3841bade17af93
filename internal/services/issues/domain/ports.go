package domain

import "context"

// WriterPort defines the write interface for issues
type WriterPort interface {
	// Upsert writes a row at (Key, UpdatedAt). A write over an existing row
	// is accepted only when its idempotency key matches the stored one;
	// otherwise a conflict error is returned and nothing changes
	Upsert(ctx context.Context, row Row) error

	// Tombstone flips deleted=true on the latest row for the event's issue
	// key, updating last_event_type, idempotency_key and received_at in
	// place; when no row exists a tombstone row is inserted
	Tombstone(ctx context.Context, ev TombstoneEvent) error
}

// ReaderPort defines the read interface for issues
type ReaderPort interface {
	// FetchLatest returns the most recently updated row for the key, or nil
	FetchLatest(ctx context.Context, key string) (*Row, error)

	// ListByFixVersion returns the latest non-deleted row per issue key
	// carrying the fix version, sorted by key
	ListByFixVersion(ctx context.Context, fixVersion string) ([]Row, error)
}
