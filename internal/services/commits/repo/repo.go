// Package repo provides repository implementations for commits
package repo

import (
	"context"
	"time"

	"shipledger/internal/modkit/repokit"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/store"
	pstrings "shipledger/internal/platform/strings"
	"shipledger/internal/services/commits/domain"
)

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the commits repository
type Storage interface {
	Upsert(ctx context.Context, records []domain.Record, observedAt time.Time) (int, error)
	FetchAll(ctx context.Context) ([]domain.Record, error)
	FetchHashes(ctx context.Context) (map[string]struct{}, error)
}

type pg struct{ q repokit.Queryer }

// Upsert implements Storage
// Branch and modified_on keep their first non-null value; everything else
// is overwritten by the incoming record
func (s *pg) Upsert(ctx context.Context, records []domain.Record, observedAt time.Time) (int, error) {
	n := 0
	for _, r := range records {
		err := store.ExecOne(ctx, s.q, `
			INSERT INTO commits (
				repository, hash, branch, message, title, author,
				files_changed, story_keys, source, modified_on, last_seen_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (repository, hash) DO UPDATE SET
				branch        = COALESCE(commits.branch, EXCLUDED.branch),
				message       = EXCLUDED.message,
				title         = EXCLUDED.title,
				author        = EXCLUDED.author,
				files_changed = EXCLUDED.files_changed,
				story_keys    = EXCLUDED.story_keys,
				source        = EXCLUDED.source,
				modified_on   = COALESCE(commits.modified_on, EXCLUDED.modified_on),
				last_seen_at  = EXCLUDED.last_seen_at
		`,
			r.Repository, r.Hash, pstrings.SQLNullPtr(r.Branch), r.Message, r.Title, r.Author,
			r.FilesChanged, r.StoryKeys, string(r.Source), r.ModifiedOn, observedAt,
		)
		if err != nil {
			return n, perr.FromPostgresWithField(err, "commit upsert")
		}
		n++
	}
	return n, nil
}

// FetchAll implements Storage
func (s *pg) FetchAll(ctx context.Context) ([]domain.Record, error) {
	out, err := store.Many(ctx, s.q, scanRecord, `
		SELECT
			repository, hash, branch, message, title, author,
			files_changed, story_keys, source, modified_on, last_seen_at
		FROM commits
		ORDER BY repository, hash
	`)
	if err != nil {
		return nil, perr.FromPostgresWithField(err, "commit fetch all")
	}
	return out, nil
}

func scanRecord(row store.Row) (domain.Record, error) {
	var (
		r   domain.Record
		src string
	)
	if err := row.Scan(
		&r.Repository, &r.Hash, &r.Branch, &r.Message, &r.Title, &r.Author,
		&r.FilesChanged, &r.StoryKeys, &src, &r.ModifiedOn, &r.LastSeenAt,
	); err != nil {
		return r, err
	}
	r.Source = domain.Source(src)
	return r, nil
}

// FetchHashes implements Storage
func (s *pg) FetchHashes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.q.Query(ctx, `SELECT DISTINCT hash FROM commits`)
	if err != nil {
		return nil, perr.FromPostgresWithField(err, "commit fetch hashes")
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, perr.FromPostgresWithField(err, "commit hash scan")
		}
		out[h] = struct{}{}
	}
	return out, perr.FromPostgres(rows.Err(), "commit hash rows")
}
