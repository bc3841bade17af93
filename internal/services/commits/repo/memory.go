package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"shipledger/internal/services/commits/domain"
)

// Memory is an in-process Storage with the same merge contract as the
// Postgres repo; used by the scanner and by tests
type Memory struct {
	mu   sync.Mutex
	rows map[memKey]domain.Record
}

type memKey struct {
	repository string
	hash       string
}

// NewMemory constructs an empty in-memory commits store
func NewMemory() *Memory {
	return &Memory{rows: make(map[memKey]domain.Record)}
}

// Upsert implements Storage
func (m *Memory) Upsert(_ context.Context, records []domain.Record, observedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range records {
		k := memKey{repository: r.Repository, hash: r.Hash}
		next := r
		next.LastSeenAt = observedAt
		if prev, ok := m.rows[k]; ok {
			// first non-null value wins for branch and modified_on
			if prev.Branch != nil {
				next.Branch = prev.Branch
			}
			if prev.ModifiedOn != nil {
				next.ModifiedOn = prev.ModifiedOn
			}
		}
		m.rows[k] = next
		n++
	}
	return n, nil
}

// FetchAll implements Storage
func (m *Memory) FetchAll(_ context.Context) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Record, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Repository != out[j].Repository {
			return out[i].Repository < out[j].Repository
		}
		return out[i].Hash < out[j].Hash
	})
	return out, nil
}

// FetchHashes implements Storage
func (m *Memory) FetchHashes(_ context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct{}, len(m.rows))
	for k := range m.rows {
		out[k.hash] = struct{}{}
	}
	return out, nil
}
