// Package repo provides repository implementations for issues
package repo

import (
	"context"
	"errors"

	"shipledger/internal/modkit/repokit"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/store"
	"shipledger/internal/services/issues/domain"
)

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the issues repository
type Storage interface {
	Upsert(ctx context.Context, row domain.Row) error
	Tombstone(ctx context.Context, ev domain.TombstoneEvent) error
	FetchLatest(ctx context.Context, key string) (*domain.Row, error)
	ListByFixVersion(ctx context.Context, fixVersion string) ([]domain.Row, error)
}

type pg struct{ q repokit.Queryer }

// Upsert implements Storage
// The conditional DO UPDATE only fires when the incoming idempotency key
// matches the stored one; zero rows affected means a differing key hit an
// existing row
func (s *pg) Upsert(ctx context.Context, row domain.Row) error {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO issues (
			issue_key, updated_at, status, assignee, fix_versions,
			last_event_type, idempotency_key, received_at, deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (issue_key, updated_at) DO UPDATE SET
			status          = EXCLUDED.status,
			assignee        = EXCLUDED.assignee,
			fix_versions    = EXCLUDED.fix_versions,
			last_event_type = EXCLUDED.last_event_type,
			received_at     = EXCLUDED.received_at,
			deleted         = EXCLUDED.deleted
		WHERE issues.idempotency_key = EXCLUDED.idempotency_key
	`,
		row.Key, row.UpdatedAt, row.Status, row.Assignee, row.FixVersions,
		row.LastEventType, row.IdempotencyKey, row.ReceivedAt, row.Deleted,
	)
	if err != nil {
		return perr.FromPostgresWithField(err, "issue upsert")
	}
	if tag.RowsAffected() == 0 {
		return perr.Conflictf("issue %s@%s already written by another delivery", row.Key, row.UpdatedAt.UTC())
	}
	return nil
}

// Tombstone implements Storage
func (s *pg) Tombstone(ctx context.Context, ev domain.TombstoneEvent) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE issues SET
			deleted         = TRUE,
			last_event_type = $2,
			idempotency_key = $3,
			received_at     = $4
		WHERE issue_key = $1
			AND updated_at = (
				SELECT updated_at FROM issues
				WHERE issue_key = $1
				ORDER BY updated_at DESC
				LIMIT 1
			)
	`, ev.Key, ev.EventType, ev.IdempotencyKey, ev.ReceivedAt)
	if err != nil {
		return perr.FromPostgresWithField(err, "issue tombstone update")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// no prior row; record the deletion under the event's own timestamp
	_, err = s.q.Exec(ctx, `
		INSERT INTO issues (
			issue_key, updated_at, status, assignee, fix_versions,
			last_event_type, idempotency_key, received_at, deleted
		) VALUES ($1, $2, '', '', '{}', $3, $4, $5, TRUE)
		ON CONFLICT (issue_key, updated_at) DO NOTHING
	`, ev.Key, ev.UpdatedAt, ev.EventType, ev.IdempotencyKey, ev.ReceivedAt)
	return perr.FromPostgresWithField(err, "issue tombstone insert")
}

// FetchLatest implements Storage
// A missing issue is not an error; callers get a nil row
func (s *pg) FetchLatest(ctx context.Context, key string) (*domain.Row, error) {
	r, err := store.One(ctx, s.q, scanRow, `
		SELECT
			issue_key, updated_at, status, assignee, fix_versions,
			last_event_type, idempotency_key, received_at, deleted
		FROM issues
		WHERE issue_key = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, key)
	if errors.Is(err, perr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgresWithField(err, "issue fetch latest")
	}
	return &r, nil
}

// ListByFixVersion implements Storage
func (s *pg) ListByFixVersion(ctx context.Context, fixVersion string) ([]domain.Row, error) {
	out, err := store.Many(ctx, s.q, scanRow, `
		SELECT issue_key, updated_at, status, assignee, fix_versions,
			last_event_type, idempotency_key, received_at, deleted
		FROM (
			SELECT DISTINCT ON (issue_key)
				issue_key, updated_at, status, assignee, fix_versions,
				last_event_type, idempotency_key, received_at, deleted
			FROM issues
			ORDER BY issue_key, updated_at DESC
		) latest
		WHERE NOT deleted AND $1 = ANY(fix_versions)
		ORDER BY issue_key
	`, fixVersion)
	if err != nil {
		return nil, perr.FromPostgresWithField(err, "issue list by fix version")
	}
	return out, nil
}

func scanRow(row store.Row) (domain.Row, error) {
	var r domain.Row
	err := row.Scan(
		&r.Key, &r.UpdatedAt, &r.Status, &r.Assignee, &r.FixVersions,
		&r.LastEventType, &r.IdempotencyKey, &r.ReceivedAt, &r.Deleted,
	)
	return r, err
}
