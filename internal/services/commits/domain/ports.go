package domain

import (
	"context"
	"time"
)

// WriterPort defines the write interface for commits
type WriterPort interface {
	// Upsert merges records into the store and returns how many were written
	// Branch and ModifiedOn keep their first non-null value across re-upserts
	Upsert(ctx context.Context, records []Record, observedAt time.Time) (int, error)
}

// ReaderPort defines the read interface for commits
type ReaderPort interface {
	// FetchAll returns every stored commit ordered by (repository, hash)
	FetchAll(ctx context.Context) ([]Record, error)

	// FetchHashes returns the set of stored commit hashes
	FetchHashes(ctx context.Context) (map[string]struct{}, error)
}
