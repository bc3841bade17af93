// Package service implements the batch scan orchestration
package service

import (
	"context"
	"time"

	"shipledger/internal/adapters/upstream/bitbucket"
	"shipledger/internal/adapters/upstream/jira"
	"shipledger/internal/core/storykey"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
	ptime "shipledger/internal/platform/time"
	cdom "shipledger/internal/services/commits/domain"
	codom "shipledger/internal/services/correlation/domain"
	idom "shipledger/internal/services/issues/domain"
	"shipledger/internal/services/scan/domain"
)

// defaultWindowDays backs Input.WindowDays when the caller leaves it zero
const defaultWindowDays = 30

// scanEventType stamps issue rows refreshed by a scan
const scanEventType = "scan"

// Service implements domain.RunnerPort
//
// Jira is optional; when nil the scan correlates against whatever the
// issue store already holds for the fix version
type Service struct {
	Jira      domain.IssueFetcher
	Bitbucket domain.CommitFetcher
	Issues    idom.WriterPort
	Commits   cdom.WriterPort
	Engine    codom.EnginePort

	now func() time.Time
}

// New constructs the scan service
func New(jc domain.IssueFetcher, bc domain.CommitFetcher, issues idom.WriterPort, commits cdom.WriterPort, engine codom.EnginePort) *Service {
	return &Service{
		Jira:      jc,
		Bitbucket: bc,
		Issues:    issues,
		Commits:   commits,
		Engine:    engine,
		now:       time.Now,
	}
}

// Scan implements domain.RunnerPort. The pass is sequential: refresh the
// issue projection from Jira, pull the commit window, upsert, correlate.
// Any stage failure fails the whole scan; there are no silent partials
func (s *Service) Scan(ctx context.Context, in domain.Input) (domain.Report, error) {
	if in.FixVersion == "" {
		return domain.Report{}, perr.Newf(perr.ErrorCodeValidation, "fix version is required")
	}
	if in.WindowDays <= 0 {
		in.WindowDays = defaultWindowDays
	}
	if in.FreezeDate.IsZero() {
		in.FreezeDate = s.now().UTC()
	}

	rep := domain.Report{FixVersion: in.FixVersion}
	log := logger.C(ctx)

	if s.Jira != nil {
		n, err := s.refreshIssues(ctx, in)
		if err != nil {
			return domain.Report{}, perr.WithOp(err, "scan.refresh_issues")
		}
		rep.Issues = n
	}

	fetched, stored, err := s.ingestCommits(ctx, in)
	if err != nil {
		return domain.Report{}, err
	}
	rep.CommitsFetched = fetched
	rep.CommitsStored = stored

	res, err := s.Engine.Run(ctx, in.FixVersion)
	if err != nil {
		return domain.Report{}, perr.Wrap(err, perr.ErrorCodeDB, "correlate scan results")
	}
	rep.Result = res

	log.Info().
		Str("fix_version", in.FixVersion).
		Int("issues", rep.Issues).
		Int("commits_fetched", rep.CommitsFetched).
		Int("commits_stored", rep.CommitsStored).
		Int("matched", len(res.Matched)).
		Msg("scan complete")
	return rep, nil
}

// refreshIssues pulls the live fix-version issues and writes them into
// the store projection. A conflict means the projection already holds a
// delivery for that (key, updated_at) and is skipped, not failed
func (s *Service) refreshIssues(ctx context.Context, in domain.Input) (int, error) {
	issues, _, err := s.Jira.FetchIssues(ctx, jira.FetchInput{
		FixVersion: in.FixVersion,
		UseCache:   in.UseCache,
	})
	if err != nil {
		return 0, err
	}

	receivedAt := s.now().UTC()
	for _, is := range issues {
		row := idom.Row{
			Key:            is.Key,
			UpdatedAt:      is.UpdatedAt,
			Status:         is.Status,
			Assignee:       is.Assignee,
			FixVersions:    is.FixVersions,
			LastEventType:  scanEventType,
			IdempotencyKey: scanEventType + ":" + is.Key + ":" + is.UpdatedAt.UTC().Format(time.RFC3339),
			ReceivedAt:     receivedAt,
		}
		if err := s.Issues.Upsert(ctx, row); err != nil && !perr.IsConflict(err) {
			return 0, err
		}
	}
	return len(issues), nil
}

func (s *Service) ingestCommits(ctx context.Context, in domain.Input) (fetched, stored int, err error) {
	start, end := in.Window()
	commits, _, err := s.Bitbucket.FetchCommits(ctx, bitbucket.FetchInput{
		Repos:    in.Repos,
		Branches: in.Branches,
		Start:    start,
		End:      end,
		UseCache: in.UseCache,
	})
	if err != nil {
		return 0, 0, perr.WithOp(err, "scan.fetch_commits")
	}
	if len(commits) == 0 {
		return 0, 0, nil
	}

	recs := make([]cdom.Record, 0, len(commits))
	for _, c := range commits {
		recs = append(recs, normalizeCommit(c))
	}
	n, err := s.Commits.Upsert(ctx, recs, s.now().UTC())
	if err != nil {
		return len(commits), 0, perr.Wrap(err, perr.ErrorCodeDB, "store scanned commits")
	}
	return len(commits), n, nil
}

// normalizeCommit maps an upstream commit to a store record. Scans see no
// pull request titles, so key extraction runs on message and branch only
func normalizeCommit(c bitbucket.Commit) cdom.Record {
	rec := cdom.Record{
		Repository: c.Repository,
		Hash:       c.Hash,
		Message:    c.Message,
		Author:     c.Author,
		StoryKeys:  storykey.Extract(c.Message, c.Branch, ""),
		Source:     cdom.SourceScan,
	}
	if c.Branch != "" {
		b := c.Branch
		rec.Branch = &b
	}
	rec.ModifiedOn = ptime.Ptr(c.Date)
	return rec
}
