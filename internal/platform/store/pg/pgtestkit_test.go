package pg

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTestDB opens a client against dsn, hands it to fn, and closes it
// on cleanup. poolMut runs before the pool dials, mirroring how the
// store layer tunes pool config in production.
func WithTestDB(t *testing.T, dsn string, poolMut func(*pgxpool.Config), fn func(p *PG)) {
	t.Helper()

	client, err := Open(context.Background(), Config{URL: dsn}, nil, poolMut)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(client.Close)

	fn(client)
}

// AcquireConn pins a single pooled connection for the test and releases
// it on cleanup. TEMP tables and session settings survive only on a
// pinned session, never across pool checkouts.
func AcquireConn(t *testing.T, p *PG, ctx context.Context) *pgxpool.Conn {
	t.Helper()

	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	t.Cleanup(conn.Release)

	return conn
}
