package domain

import (
	"context"

	"shipledger/internal/adapters/upstream/bitbucket"
	"shipledger/internal/adapters/upstream/jira"
)

// RunnerPort is what this module offers
type RunnerPort interface {
	// Scan runs one full audit pass for the input
	Scan(ctx context.Context, in Input) (Report, error)
}

// IssueFetcher is the slice of the Jira client a scan needs
type IssueFetcher interface {
	FetchIssues(ctx context.Context, in jira.FetchInput) ([]jira.Issue, string, error)
}

// CommitFetcher is the slice of the Bitbucket client a scan needs
type CommitFetcher interface {
	FetchCommits(ctx context.Context, in bitbucket.FetchInput) ([]bitbucket.Commit, []string, error)
}
