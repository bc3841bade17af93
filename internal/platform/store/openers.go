package store

import (
	"context"
	"fmt"
	"time"

	"shipledger/internal/platform/store/pg"
)

const (
	defaultConnectRetries = 6
	defaultPingTimeout    = 5 * time.Second
	backoffStart          = 150 * time.Millisecond
	backoffCeiling        = 2 * time.Second
)

// openPG dials postgres, waits for it to answer pings, and publishes the
// sql adapter on the store. The adapter is only installed after a
// successful ping so callers never see a half-alive backend.
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	if err := waitForPing(ctx, p, cfg.PG); err != nil {
		p.Close()
		return nil, err
	}

	a := newPGAdapter(p)
	s.PG = a
	return a, nil
}

// waitForPing retries Pool.Ping with exponential backoff. Pings go
// straight to the pool so boot probes never show up in the sql trace.
func waitForPing(ctx context.Context, p *pg.PG, cfg PGConfig) error {
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = defaultConnectRetries
	}
	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(toCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		time.Sleep(backoff)
		if backoff *= 2; backoff > backoffCeiling {
			backoff = backoffCeiling
		}
	}

	return fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}
