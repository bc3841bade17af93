package testkit

import (
	"sync"
	"testing"
)

var serialMu sync.Mutex

// Swap replaces a package-level seam (usually a function variable) for
// the duration of the test. The original value is restored on cleanup,
// after any cleanup registered later by the test body.
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial holds a process-wide lock until the test finishes. Tests that
// Swap a shared seam call this first so parallel tests cannot observe
// each other's replacements.
func Serial(t *testing.T) {
	t.Helper()
	serialMu.Lock()
	t.Cleanup(serialMu.Unlock)
}
