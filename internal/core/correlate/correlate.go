// Package correlate computes the issue to commit correlation
// The engine is a pure function of the issue and commit snapshot it is
// handed; summary counters are derived from the final sets, never
// accumulated, so repeated runs over the same snapshot are identical
package correlate

import (
	"strings"

	"shipledger/internal/core/storykey"
)

// Commit is the minimal commit view the engine needs
// StoryKeys, when present, is trusted over the free-text fields
type Commit struct {
	Hash      string
	Message   string
	Branch    string
	Title     string
	StoryKeys []string
}

// Pair links one extracted key to one commit hash
// The key does not have to name a tracked issue
type Pair struct {
	Key  string `json:"key"`
	Hash string `json:"hash"`
}

// Summary holds the derived counters
type Summary struct {
	TotalIssues    int `json:"total_issues"`
	TotalCommits   int `json:"total_commits"`
	MatchedCommits int `json:"matched_commits"`
	OrphanCommits  int `json:"orphan_commits"`
}

// Result is the full correlation output
type Result struct {
	Matched              []Pair   `json:"matched"`
	IssuesWithoutCommits []string `json:"issues_without_commits"`
	OrphanCommits        []string `json:"orphan_commits"`
	Summary              Summary  `json:"summary"`
}

// Keys returns the story keys for a commit, explicit keys first
func Keys(c Commit) []string {
	if len(c.StoryKeys) > 0 {
		return storykey.Normalize(c.StoryKeys)
	}
	return storykey.Extract(c.Message, c.Branch, c.Title)
}

// Correlate maps issues to the commits that reference them
// Output ordering is stable: commits in input order, issues in input
// order, pairs in commit-then-key order
func Correlate(issueKeys []string, commits []Commit) Result {
	var res Result
	referenced := map[string]struct{}{}

	for _, c := range commits {
		keys := Keys(c)
		if len(keys) == 0 {
			res.OrphanCommits = append(res.OrphanCommits, c.Hash)
			continue
		}
		for _, k := range keys {
			referenced[k] = struct{}{}
			res.Matched = append(res.Matched, Pair{Key: k, Hash: c.Hash})
		}
	}

	for _, k := range issueKeys {
		if _, ok := referenced[strings.ToUpper(k)]; !ok {
			res.IssuesWithoutCommits = append(res.IssuesWithoutCommits, k)
		}
	}

	matched := len(commits) - len(res.OrphanCommits)
	res.Summary = Summary{
		TotalIssues:    len(issueKeys),
		TotalCommits:   len(commits),
		MatchedCommits: matched,
		OrphanCommits:  len(res.OrphanCommits),
	}
	return res
}
