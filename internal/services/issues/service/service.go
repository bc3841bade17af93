// Package service provides the issues service implementation
package service

import (
	"context"
	"time"

	"shipledger/internal/modkit/repokit"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
	"shipledger/internal/services/issues/domain"
	"shipledger/internal/services/issues/repo"
)

// Config for the issues service
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

// New constructs an issues service backed by Postgres
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage], cfg Config) *Service {
	return newService(db, b, nil, cfg)
}

// NewMemory constructs an issues service backed by the in-memory store
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
// A conflict is surfaced to the caller unretried; transient store errors
// are retried with doubling backoff
func (s *Service) Upsert(ctx context.Context, row domain.Row) error {
	err := s.retry(ctx, func() error {
		return s.with(ctx, func(st repo.Storage) error {
			return st.Upsert(ctx, row)
		})
	})
	if perr.IsConflict(err) {
		logger.C(ctx).Info().
			Str("issue_key", row.Key).
			Time("updated_at", row.UpdatedAt).
			Str("idempotency_key", row.IdempotencyKey).
			Msg("stale delivery skipped")
	}
	return err
}

// Tombstone implements domain.WriterPort
func (s *Service) Tombstone(ctx context.Context, ev domain.TombstoneEvent) error {
	return s.retry(ctx, func() error {
		return s.with(ctx, func(st repo.Storage) error {
			return st.Tombstone(ctx, ev)
		})
	})
}

// FetchLatest implements domain.ReaderPort
func (s *Service) FetchLatest(ctx context.Context, key string) (*domain.Row, error) {
	var out *domain.Row
	err := s.retry(ctx, func() error {
		return s.with(ctx, func(st repo.Storage) error {
			var err error
			out, err = st.FetchLatest(ctx, key)
			return err
		})
	})
	return out, err
}

// ListByFixVersion implements domain.ReaderPort
func (s *Service) ListByFixVersion(ctx context.Context, fixVersion string) ([]domain.Row, error) {
	var out []domain.Row
	err := s.retry(ctx, func() error {
		return s.with(ctx, func(st repo.Storage) error {
			var err error
			out, err = st.ListByFixVersion(ctx, fixVersion)
			return err
		})
	})
	return out, err
}

func (s *Service) with(ctx context.Context, fn func(st repo.Storage) error) error {
	if s.Mem != nil {
		return fn(s.Mem)
	}
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return fn(repokit.MustBind(s.Binder, q))
	})
}

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
