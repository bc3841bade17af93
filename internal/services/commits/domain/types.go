// Package domain defines the commit-store types and ports
package domain

import "time"

// Source identifies which ingestion channel produced a commit record
type Source string

const (
	// SourceScan marks records ingested by a batch scan
	SourceScan Source = "scan"

	// SourceWebhook marks records ingested by a webhook delivery
	SourceWebhook Source = "webhook"
)

// Record is a normalized commit as stored, keyed by (Repository, Hash)
type Record struct {
	Repository   string
	Hash         string
	Branch       *string
	Message      string
	Title        string
	Author       string
	FilesChanged []string
	StoryKeys    []string
	Source       Source
	ModifiedOn   *time.Time
	LastSeenAt   time.Time
}
