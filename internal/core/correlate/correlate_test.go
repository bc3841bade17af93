package correlate

import (
	"reflect"
	"testing"
)

func TestCorrelate_MatchingScenario(t *testing.T) {
	issues := []string{"APP-1", "APP-2"}
	commits := []Commit{
		{Hash: "c1", Message: "app-1 fix", Branch: "feature/app-2-cleanup", Title: "APP-9 fallback"},
		{Hash: "c2", Message: "no ticket"},
		{Hash: "c3", StoryKeys: []string{"app-2", "OPS-1"}},
	}

	res := Correlate(issues, commits)

	wantPairs := []Pair{
		{Key: "APP-1", Hash: "c1"},
		{Key: "APP-2", Hash: "c1"},
		{Key: "APP-9", Hash: "c1"},
		{Key: "APP-2", Hash: "c3"},
		{Key: "OPS-1", Hash: "c3"},
	}
	if !reflect.DeepEqual(res.Matched, wantPairs) {
		t.Fatalf("Matched = %v, want %v", res.Matched, wantPairs)
	}
	if !reflect.DeepEqual(res.OrphanCommits, []string{"c2"}) {
		t.Fatalf("OrphanCommits = %v, want [c2]", res.OrphanCommits)
	}
	if len(res.IssuesWithoutCommits) != 0 {
		t.Fatalf("IssuesWithoutCommits = %v, want empty", res.IssuesWithoutCommits)
	}

	want := Summary{TotalIssues: 2, TotalCommits: 3, MatchedCommits: 2, OrphanCommits: 1}
	if res.Summary != want {
		t.Fatalf("Summary = %+v, want %+v", res.Summary, want)
	}
}

func TestCorrelate_Pure(t *testing.T) {
	issues := []string{"APP-1", "OPS-3"}
	commits := []Commit{
		{Hash: "a", Message: "APP-1 work"},
		{Hash: "b", Message: "nothing here"},
	}

	first := Correlate(issues, commits)
	second := Correlate(issues, commits)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("correlate is not pure: %+v vs %+v", first, second)
	}
}

func TestCorrelate_OrphanBoundary(t *testing.T) {
	// a commit with no extractable key is always an orphan, never matched
	res := Correlate(nil, []Commit{{Hash: "c1", Message: "refactor", Branch: "main", Title: "cleanup"}})

	if len(res.Matched) != 0 {
		t.Fatalf("expected no matches, got %v", res.Matched)
	}
	if !reflect.DeepEqual(res.OrphanCommits, []string{"c1"}) {
		t.Fatalf("OrphanCommits = %v, want [c1]", res.OrphanCommits)
	}
	if res.Summary.OrphanCommits != 1 || res.Summary.MatchedCommits != 0 {
		t.Fatalf("Summary = %+v", res.Summary)
	}
}

func TestCorrelate_UntrackedKeysStillMatch(t *testing.T) {
	// pairs are emitted even when the key names no tracked issue
	res := Correlate([]string{"APP-1"}, []Commit{{Hash: "c1", Message: "ZZZ-99 hotfix"}})

	if !reflect.DeepEqual(res.Matched, []Pair{{Key: "ZZZ-99", Hash: "c1"}}) {
		t.Fatalf("Matched = %v", res.Matched)
	}
	if !reflect.DeepEqual(res.IssuesWithoutCommits, []string{"APP-1"}) {
		t.Fatalf("IssuesWithoutCommits = %v, want [APP-1]", res.IssuesWithoutCommits)
	}
}

func TestCorrelate_ExplicitKeysSkipDerivation(t *testing.T) {
	// explicit StoryKeys suppress free-text extraction entirely
	c := Commit{Hash: "c1", Message: "APP-7 text mention", StoryKeys: []string{"ops-2"}}

	res := Correlate(nil, []Commit{c})

	if !reflect.DeepEqual(res.Matched, []Pair{{Key: "OPS-2", Hash: "c1"}}) {
		t.Fatalf("Matched = %v, want only OPS-2", res.Matched)
	}
}

func TestCorrelate_EmptyInputs(t *testing.T) {
	res := Correlate(nil, nil)

	if res.Summary != (Summary{}) {
		t.Fatalf("Summary = %+v, want zero", res.Summary)
	}
	if len(res.Matched) != 0 || len(res.OrphanCommits) != 0 || len(res.IssuesWithoutCommits) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
