// Package service provides the commits service implementation
package service

import (
	"context"
	"time"

	"shipledger/internal/modkit/repokit"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/services/commits/domain"
	"shipledger/internal/services/commits/repo"
)

// Config for the commits service
type Config struct {
	// StoreAttempts caps retries on transient store errors; defaults to 3 if <=0
	StoreAttempts int

	// RetryBase is the initial retry backoff; defaults to 100ms if <=0
	RetryBase time.Duration
}

// Service implements domain.WriterPort and domain.ReaderPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Mem    repo.Storage
	Cfg    Config

	sleep func(context.Context, time.Duration) error
}

// New constructs a commits service backed by Postgres
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage], cfg Config) *Service {
	return newService(db, b, nil, cfg)
}

// NewMemory constructs a commits service backed by the in-memory store
func NewMemory(mem repo.Storage, cfg Config) *Service {
	return newService(nil, nil, mem, cfg)
}

func newService(db repokit.TxRunner, b repokit.Binder[repo.Storage], mem repo.Storage, cfg Config) *Service {
	if cfg.StoreAttempts <= 0 {
		cfg.StoreAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}
	return &Service{DB: db, Binder: b, Mem: mem, Cfg: cfg, sleep: sleepCtx}
}

// Upsert implements domain.WriterPort
// FilesChanged and StoryKeys are deduplicated order-preserving before storage
func (s *Service) Upsert(ctx context.Context, records []domain.Record, observedAt time.Time) (int, error) {
	clean := make([]domain.Record, len(records))
	for i, r := range records {
		r.FilesChanged = dedup(r.FilesChanged)
		r.StoryKeys = dedup(r.StoryKeys)
		clean[i] = r
	}

	var n int
	err := s.retry(ctx, func() error {
		return s.with(ctx, func(st repo.Storage) error {
			var err error
			n, err = st.Upsert(ctx, clean, observedAt)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// FetchAll implements domain.ReaderPort
func (s *Service) FetchAll(ctx context.Context) ([]domain.Record, error) {
	var out []domain.Record
	err := s.retry(ctx, func() error {
		return s.with(ctx, func(st repo.Storage) error {
			var err error
			out, err = st.FetchAll(ctx)
			return err
		})
	})
	return out, err
}

// FetchHashes implements domain.ReaderPort
func (s *Service) FetchHashes(ctx context.Context) (map[string]struct{}, error) {
	var out map[string]struct{}
	err := s.retry(ctx, func() error {
		return s.with(ctx, func(st repo.Storage) error {
			var err error
			out, err = st.FetchHashes(ctx)
			return err
		})
	})
	return out, err
}

// with dispatches to the in-memory store when configured, else runs fn
// inside a transaction against the bound Postgres repo
func (s *Service) with(ctx context.Context, fn func(st repo.Storage) error) error {
	if s.Mem != nil {
		return fn(s.Mem)
	}
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return fn(repokit.MustBind(s.Binder, q))
	})
}

// retry re-runs fn on transient store errors with doubling backoff
func (s *Service) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || attempt >= s.Cfg.StoreAttempts || !perr.Retryable(err) {
			return err
		}
		wait := s.Cfg.RetryBase << uint(attempt-1)
		if serr := s.sleep(ctx, wait); serr != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func dedup(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
