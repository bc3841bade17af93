// Package store fronts the ledger's storage backends behind narrow
// sql seams so repos and tests never touch a driver directly.
package store

import (
	"context"
	"errors"
	"fmt"

	"shipledger/internal/platform/logger"
)

// Store is the backend facade handed to the binaries. The zero value
// is usable; disabled backends stay nil.
type Store struct {
	// Log feeds backend open and trace output; zero is a no-op logger
	Log logger.Logger

	// PG is the postgres seam, nil when the backend is disabled
	PG TxRunner
}

// Row is the single-row scan contract
type Row interface {
	Scan(dest ...any) error
}

// Rows is the result-set contract: iterate, scan, then Close
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports the outcome of a write statement
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the read/write surface repos program against
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner adds function-scoped transactions on top of RowQuerier
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Pinger is implemented by seams that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open assembles a Store from cfg. Only backends cfg enables are
// dialed; an error from any backend aborts the whole open.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	// normalize a zero logger so subclients can log unconditionally
	s.Log = s.Log.With().Logger()

	if cfg.PG.Enabled {
		runner, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = runner
	}

	return s, nil
}

// Guard pings every opened seam that supports it and joins the
// failures. Seams without a Ping are assumed healthy.
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}

	var errs []error
	if s.PG != nil {
		if p, ok := any(s.PG).(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("pg: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close shuts down every opened backend, ignoring ones never dialed
func (s *Store) Close(ctx context.Context) error {
	var errs []error

	if c, ok := s.PG.(interface{ Close() error }); ok {
		if e := c.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	return errors.Join(errs...)
}
