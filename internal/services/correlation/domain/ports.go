// Package domain defines the correlation engine ports
package domain

import (
	"context"

	"shipledger/internal/core/correlate"
)

// ArtifactSink receives serialized correlation artifacts
type ArtifactSink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// EnginePort runs correlation over the current issue and commit sets
type EnginePort interface {
	// Run correlates every issue carrying the fix version against the full
	// commit set and emits a timestamped artifact
	Run(ctx context.Context, fixVersion string) (correlate.Result, error)

	// Recorrelate reruns the engine scoped to the given issue keys' current
	// rows plus the full commit set
	Recorrelate(ctx context.Context, issueKeys []string) (correlate.Result, error)
}
