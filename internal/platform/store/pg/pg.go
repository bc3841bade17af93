// Package pg wraps pgxpool with optional statement tracing for the
// ledger's Postgres backend.
package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config carries the pool settings the store layer resolves from env
type Config struct {
	URL      string
	MaxConns int32
	SlowMs   int
}

// PG owns a pgxpool.Pool plus the tracing knobs the sql adapter reads
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

// Option mutates PG during Open
type Option func(*PG) error

// seam for tests; swapped out so Open can be exercised without a server
var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL, applies MaxConns and the optional pool config
// mutator, and dials the pool. The tracer is carried on the returned
// client rather than installed on the pool; the sql adapter decides
// per statement whether to trace.
func Open(ctx context.Context, cfg Config, tracer QueryTracer, poolCfgMut func(*pgxpool.Config)) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if poolCfgMut != nil {
		poolCfgMut(pcfg)
	}

	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	return &PG{Pool: pool, Tracer: tracer, SlowMs: cfg.SlowMs}, nil
}

// Close releases the pool; safe on a nil client or an unopened pool
func (p *PG) Close() {
	if p == nil || p.Pool == nil {
		return
	}
	p.Pool.Close()
}
