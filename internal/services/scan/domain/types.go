// Package domain defines the scan orchestration types and ports
package domain

import (
	"time"

	"shipledger/internal/core/correlate"
)

// Input selects what a scan covers
type Input struct {
	FixVersion string
	Repos      []string
	Branches   []string
	FreezeDate time.Time
	WindowDays int
	UseCache   bool
}

// Window is the commit fetch range derived from the freeze date
func (in Input) Window() (start, end time.Time) {
	return in.FreezeDate.AddDate(0, 0, -in.WindowDays), in.FreezeDate
}

// Report summarizes one scan run
type Report struct {
	FixVersion     string           `json:"fix_version"`
	Issues         int              `json:"issues"`
	CommitsFetched int              `json:"commits_fetched"`
	CommitsStored  int              `json:"commits_stored"`
	Result         correlate.Result `json:"result"`
}
