package domain

import (
	"context"

	"shipledger/internal/core/correlate"
)

// IngestPort applies normalized webhook deliveries
type IngestPort interface {
	// ApplyJira upserts or tombstones the touched issue and reruns
	// correlation scoped to its key. Unsupported event types come back
	// with Ignored set and nothing persisted
	ApplyJira(ctx context.Context, ev JiraEvent) (JiraResult, error)

	// ApplyBitbucket upserts the delivery's normalized commits
	ApplyBitbucket(ctx context.Context, ev BitbucketEvent) (BitbucketResult, error)

	// Recorrelate reruns correlation on demand, scoped to the given issue
	// keys when any are present and to the fix version otherwise
	Recorrelate(ctx context.Context, fixVersion string, issueKeys []string) (correlate.Result, error)
}
