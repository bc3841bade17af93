// Package domain defines the webhook ingestion types and ports
package domain

import (
	"time"

	cdom "shipledger/internal/services/commits/domain"
)

// JiraEvent is the normalized view of one Jira webhook delivery
type JiraEvent struct {
	Type        string
	IssueKey    string
	IssueID     string
	Status      string
	Assignee    string
	FixVersions []string

	// UpdatedAt resolves fields.updated, then fields.created, then the
	// envelope timestamp
	UpdatedAt time.Time

	// Timestamp is the envelope millisecond timestamp when present
	Timestamp *time.Time

	// TimestampRaw keeps the envelope timestamp verbatim for key derivation
	TimestampRaw string

	ChangelogID string
	DeliveryID  string
}

// JiraResult reports the outcome of applying a Jira delivery
type JiraResult struct {
	Ignored  bool
	IssueKey string
	IssueID  string
	Deleted  bool
}

// BitbucketEvent is the normalized view of one Bitbucket webhook delivery
type BitbucketEvent struct {
	EventKey   string
	Repository string
	Commits    []cdom.Record
}

// BitbucketResult reports the outcome of applying a Bitbucket delivery
type BitbucketResult struct {
	Ignored  bool
	EventKey string
	Ingested int
}
