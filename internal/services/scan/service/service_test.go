package service

import (
	"context"
	"testing"
	"time"

	"shipledger/internal/adapters/upstream/bitbucket"
	"shipledger/internal/adapters/upstream/jira"
	perr "shipledger/internal/platform/errors"
	cdom "shipledger/internal/services/commits/domain"
	crepo "shipledger/internal/services/commits/repo"
	csvc "shipledger/internal/services/commits/service"
	cosvc "shipledger/internal/services/correlation/service"
	idom "shipledger/internal/services/issues/domain"
	irepo "shipledger/internal/services/issues/repo"
	isvc "shipledger/internal/services/issues/service"
	"shipledger/internal/services/scan/domain"
)

type fakeJira struct {
	issues []jira.Issue
	err    error
	inputs []jira.FetchInput
}

func (f *fakeJira) FetchIssues(_ context.Context, in jira.FetchInput) ([]jira.Issue, string, error) {
	f.inputs = append(f.inputs, in)
	return f.issues, "key", f.err
}

type fakeBitbucket struct {
	commits []bitbucket.Commit
	err     error
	inputs  []bitbucket.FetchInput
}

func (f *fakeBitbucket) FetchCommits(_ context.Context, in bitbucket.FetchInput) ([]bitbucket.Commit, []string, error) {
	f.inputs = append(f.inputs, in)
	return f.commits, nil, f.err
}

type memSink struct {
	names []string
}

func (s *memSink) Write(_ context.Context, name string, _ []byte) error {
	s.names = append(s.names, name)
	return nil
}

type fixture struct {
	svc     *Service
	jira    *fakeJira
	bb      *fakeBitbucket
	commits *csvc.Service
	issues  *isvc.Service
	sink    *memSink
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	issues := isvc.NewMemory(irepo.NewMemory(), isvc.Config{})
	commits := csvc.NewMemory(crepo.NewMemory(), csvc.Config{})
	sink := &memSink{}
	engine := cosvc.New(issues, commits, sink)

	jc := &fakeJira{}
	bc := &fakeBitbucket{}
	s := New(jc, bc, issues, commits, engine)
	s.now = func() time.Time { return time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC) }
	return fixture{svc: s, jira: jc, bb: bc, commits: commits, issues: issues, sink: sink}
}

func TestScan_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	f.jira.issues = []jira.Issue{
		{Key: "APP-1", Status: "Done", Assignee: "acc-1", FixVersions: []string{"2026.1.0"}, UpdatedAt: updated},
		{Key: "APP-2", Status: "In Review", FixVersions: []string{"2026.1.0"}, UpdatedAt: updated},
	}
	f.bb.commits = []bitbucket.Commit{
		{Hash: "c1", Repository: "acme/platform", Branch: "feature/APP-1-login", Message: "APP-1 add login"},
		{Hash: "c3", Repository: "acme/platform", Branch: "main", Message: "fix build"},
	}

	freeze := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rep, err := f.svc.Scan(ctx, domain.Input{
		FixVersion: "2026.1.0",
		Repos:      []string{"acme/platform"},
		Branches:   []string{"main"},
		FreezeDate: freeze,
		WindowDays: 14,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if rep.Issues != 2 || rep.CommitsFetched != 2 || rep.CommitsStored != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Result.Summary.TotalIssues != 2 || rep.Result.Summary.TotalCommits != 2 {
		t.Fatalf("summary = %+v", rep.Result.Summary)
	}
	if len(rep.Result.Matched) != 1 || rep.Result.Matched[0].Key != "APP-1" {
		t.Fatalf("matched = %+v", rep.Result.Matched)
	}
	if len(f.sink.names) != 1 {
		t.Fatalf("artifact writes = %v", f.sink.names)
	}

	if len(f.bb.inputs) != 1 {
		t.Fatalf("bitbucket calls = %d", len(f.bb.inputs))
	}
	in := f.bb.inputs[0]
	if !in.End.Equal(freeze) || !in.Start.Equal(freeze.AddDate(0, 0, -14)) {
		t.Fatalf("window = %v..%v", in.Start, in.End)
	}

	recs, err := f.commits.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch commits: %v", err)
	}
	if len(recs) != 2 || recs[0].Source != cdom.SourceScan {
		t.Fatalf("stored = %+v", recs)
	}
}

func TestScan_ProjectionConflictIsSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	seeded := idom.Row{
		Key:            "APP-1",
		UpdatedAt:      updated,
		Status:         "In Review",
		FixVersions:    []string{"2026.1.0"},
		LastEventType:  "jira:issue_updated",
		IdempotencyKey: "dlv-1",
		ReceivedAt:     updated,
	}
	if err := f.issues.Upsert(ctx, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.jira.issues = []jira.Issue{
		{Key: "APP-1", Status: "Done", FixVersions: []string{"2026.1.0"}, UpdatedAt: updated},
	}

	if _, err := f.svc.Scan(ctx, domain.Input{FixVersion: "2026.1.0"}); err != nil {
		t.Fatalf("scan must tolerate the existing projection: %v", err)
	}

	rows, err := f.issues.ListByFixVersion(ctx, "2026.1.0")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != "In Review" || rows[0].IdempotencyKey != "dlv-1" {
		t.Fatalf("first write should stand: %+v", rows)
	}
}

func TestScan_StoreProjectionOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.svc.Jira = nil
	ctx := context.Background()

	rep, err := f.svc.Scan(ctx, domain.Input{FixVersion: "2026.1.0"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rep.Issues != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if len(f.jira.inputs) != 0 {
		t.Fatalf("jira should not be called, got %d", len(f.jira.inputs))
	}
	if len(f.sink.names) != 1 {
		t.Fatalf("correlation should still run, artifacts = %v", f.sink.names)
	}
}

func TestScan_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Scan(context.Background(), domain.Input{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := perr.HTTPStatus(err); got != 400 {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestScan_UpstreamFailureFailsWhole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.bb.err = perr.UpstreamTransientf("bitbucket 503")

	_, err := f.svc.Scan(ctx, domain.Input{FixVersion: "2026.1.0"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.sink.names) != 0 {
		t.Fatalf("no artifact on failure, got %v", f.sink.names)
	}
}

func TestScan_DefaultWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Scan(ctx, domain.Input{FixVersion: "2026.1.0"}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	in := f.bb.inputs[0]
	if !in.End.Equal(f.svc.now().UTC()) {
		t.Fatalf("end should default to now, got %v", in.End)
	}
	if !in.Start.Equal(in.End.AddDate(0, 0, -defaultWindowDays)) {
		t.Fatalf("start = %v", in.Start)
	}
}

func TestNormalizeCommit(t *testing.T) {
	t.Parallel()

	d := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	rec := normalizeCommit(bitbucket.Commit{
		Hash:       "abc",
		Repository: "acme/platform",
		Branch:     "feature/APP-7-cache",
		Message:    "wire cache",
		Author:     "Dev One <dev@acme.io>",
		Date:       d,
	})
	if rec.Branch == nil || *rec.Branch != "feature/APP-7-cache" {
		t.Fatalf("branch = %v", rec.Branch)
	}
	if len(rec.StoryKeys) != 1 || rec.StoryKeys[0] != "APP-7" {
		t.Fatalf("story keys = %v", rec.StoryKeys)
	}
	if rec.ModifiedOn == nil || !rec.ModifiedOn.Equal(d) {
		t.Fatalf("modified_on = %v", rec.ModifiedOn)
	}
	if rec.Source != cdom.SourceScan {
		t.Fatalf("source = %q", rec.Source)
	}

	bare := normalizeCommit(bitbucket.Commit{Hash: "def", Repository: "acme/platform"})
	if bare.Branch != nil || bare.ModifiedOn != nil {
		t.Fatalf("bare = %+v", bare)
	}
}
