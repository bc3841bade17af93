package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// guardSeam satisfies TxRunner only. Embedding it with a Ping error
// promotes it to a Pinger via guardPingSeam below.
type guardSeam struct{}

func (*guardSeam) Tx(context.Context, func(q RowQuerier) error) error { return nil }

func (*guardSeam) Exec(context.Context, string, ...any) (CommandTag, error) {
	return nil, nil
}

func (*guardSeam) Query(context.Context, string, ...any) (Rows, error) {
	return nil, nil
}

func (*guardSeam) QueryRow(context.Context, string, ...any) Row { return nil }

type guardPingSeam struct {
	guardSeam
	err error
}

func (g *guardPingSeam) Ping(context.Context) error { return g.err }

func TestGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil store errors", func(t *testing.T) {
		t.Parallel()
		var s *Store
		if err := s.Guard(ctx); err == nil {
			t.Fatalf("nil store should return error")
		}
	})

	t.Run("no seams is healthy", func(t *testing.T) {
		t.Parallel()
		if err := (&Store{}).Guard(ctx); err != nil {
			t.Fatalf("Guard on empty store: %v", err)
		}
	})

	t.Run("non-pinger seam is skipped", func(t *testing.T) {
		t.Parallel()
		s := &Store{PG: &guardSeam{}}
		if err := s.Guard(ctx); err != nil {
			t.Fatalf("Guard should ignore seams without Ping: %v", err)
		}
	})

	t.Run("ping success", func(t *testing.T) {
		t.Parallel()
		s := &Store{PG: &guardPingSeam{}}
		if err := s.Guard(ctx); err != nil {
			t.Fatalf("Guard with healthy ping: %v", err)
		}
	})

	t.Run("ping failure carries pg prefix", func(t *testing.T) {
		t.Parallel()
		s := &Store{PG: &guardPingSeam{err: errors.New("too many clients")}}
		err := s.Guard(ctx)
		if err == nil {
			t.Fatalf("expected error when ping fails")
		}
		if !strings.HasPrefix(err.Error(), "pg: ") {
			t.Fatalf("want 'pg: ' prefix, got %q", err.Error())
		}
	})
}
