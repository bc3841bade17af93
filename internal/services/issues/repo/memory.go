package repo

import (
	"context"
	"sort"
	"sync"

	perr "shipledger/internal/platform/errors"
	"shipledger/internal/services/issues/domain"
)

// Memory is an in-process Storage with the same conditional-write and
// tombstone contract as the Postgres repo
type Memory struct {
	mu   sync.Mutex
	rows map[string][]domain.Row // issue key -> rows sorted ascending by UpdatedAt
}

// NewMemory constructs an empty in-memory issues store
func NewMemory() *Memory {
	return &Memory{rows: make(map[string][]domain.Row)}
}

// Upsert implements Storage
func (m *Memory) Upsert(_ context.Context, row domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[row.Key]
	for i, r := range rows {
		if !r.UpdatedAt.Equal(row.UpdatedAt) {
			continue
		}
		if r.IdempotencyKey != row.IdempotencyKey {
			return perr.Conflictf("issue %s@%s already written by another delivery", row.Key, row.UpdatedAt.UTC())
		}
		rows[i] = row
		return nil
	}

	rows = append(rows, row)
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.Before(rows[j].UpdatedAt) })
	m.rows[row.Key] = rows
	return nil
}

// Tombstone implements Storage
func (m *Memory) Tombstone(_ context.Context, ev domain.TombstoneEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[ev.Key]
	if len(rows) > 0 {
		last := &rows[len(rows)-1]
		last.Deleted = true
		last.LastEventType = ev.EventType
		last.IdempotencyKey = ev.IdempotencyKey
		last.ReceivedAt = ev.ReceivedAt
		return nil
	}

	m.rows[ev.Key] = []domain.Row{{
		Key:            ev.Key,
		UpdatedAt:      ev.UpdatedAt,
		FixVersions:    []string{},
		LastEventType:  ev.EventType,
		IdempotencyKey: ev.IdempotencyKey,
		ReceivedAt:     ev.ReceivedAt,
		Deleted:        true,
	}}
	return nil
}

// FetchLatest implements Storage
func (m *Memory) FetchLatest(_ context.Context, key string) (*domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[key]
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[len(rows)-1]
	return &r, nil
}

// ListByFixVersion implements Storage
func (m *Memory) ListByFixVersion(_ context.Context, fixVersion string) ([]domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Row
	for _, rows := range m.rows {
		latest := rows[len(rows)-1]
		if latest.Deleted {
			continue
		}
		for _, fv := range latest.FixVersions {
			if fv == fixVersion {
				out = append(out, latest)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
