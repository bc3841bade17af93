package repokit

import "context"

// BeginHook runs right after a transaction opens, bound to the tx
// Queryer. Typical uses are setting search_path or a session role
// before any domain statement runs.
type BeginHook func(ctx context.Context, q Queryer) error

// MidHook is invoked explicitly inside a transaction body, for steps
// like advisory locks that only some call sites need.
type MidHook func(ctx context.Context, q Queryer) error

// WithBeginHooks decorates a TxRunner so every Tx runs hooks, in
// order, before the caller's fn. A hook error aborts the tx and fn
// never runs. Non-tx calls pass straight through to inner.
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	return hookedTx{inner: inner, hooks: hooks}
}

type hookedTx struct {
	inner TxRunner
	hooks []BeginHook
}

func (h hookedTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.inner.Tx(ctx, func(q Queryer) error {
		for _, hk := range h.hooks {
			if err := hk(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

func (h hookedTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return h.inner.Exec(ctx, sql, args...)
}

func (h hookedTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return h.inner.Query(ctx, sql, args...)
}

func (h hookedTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return h.inner.QueryRow(ctx, sql, args...)
}

// RunMidHooks runs hooks in order against the tx bound Queryer,
// stopping at the first error.
func RunMidHooks(ctx context.Context, q Queryer, hooks ...MidHook) error {
	for _, hk := range hooks {
		if err := hk(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
