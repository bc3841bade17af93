package repokit

import (
	"context"
	"fmt"
	"time"
)

// pingDeadline bounds MustPing when the caller's ctx has no deadline
const pingDeadline = 5 * time.Second

type guarder interface {
	Guard(context.Context) error
}

// MustPing panics when a named dependency is nil or fails to answer a
// Ping. Called during startup, before any route is served.
func MustPing(ctx context.Context, name string, p interface{ Ping(context.Context) error }) {
	if p == nil {
		panic(fmt.Sprintf("%s: nil dependency", name))
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pingDeadline)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		panic(fmt.Sprintf("%s ping failed: %v", name, err))
	}
}

// MustGuard runs the store's Guard and panics on failure, so a process
// with an unhealthy backend dies loudly at boot instead of limping.
func MustGuard(ctx context.Context, st guarder) {
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
