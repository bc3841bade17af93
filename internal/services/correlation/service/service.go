// Package service provides the correlation engine service
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shipledger/internal/core/correlate"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
	cdom "shipledger/internal/services/commits/domain"
	"shipledger/internal/services/correlation/domain"
	idom "shipledger/internal/services/issues/domain"
)

const stampLayout = "20060102T150405"

// Service implements domain.EnginePort
type Service struct {
	Issues  idom.ReaderPort
	Commits cdom.ReaderPort
	Sink    domain.ArtifactSink

	now   func() time.Time
	newID func() string
}

// artifact is the serialized shape handed to the sink
type artifact struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	FixVersion  string           `json:"fix_version,omitempty"`
	Scope       []string         `json:"scope,omitempty"`
	Result      correlate.Result `json:"result"`
}

// New constructs the correlation engine service
func New(issues idom.ReaderPort, commits cdom.ReaderPort, sink domain.ArtifactSink) *Service {
	return &Service{
		Issues:  issues,
		Commits: commits,
		Sink:    sink,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run implements domain.EnginePort
func (s *Service) Run(ctx context.Context, fixVersion string) (correlate.Result, error) {
	rows, err := s.Issues.ListByFixVersion(ctx, fixVersion)
	if err != nil {
		return correlate.Result{}, err
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return s.run(ctx, artifact{FixVersion: fixVersion}, keys)
}

// Recorrelate implements domain.EnginePort
// Tombstoned or unknown keys drop out of the issue set but their commits
// still participate
func (s *Service) Recorrelate(ctx context.Context, issueKeys []string) (correlate.Result, error) {
	var keys []string
	for _, k := range issueKeys {
		row, err := s.Issues.FetchLatest(ctx, k)
		if err != nil {
			return correlate.Result{}, err
		}
		if row == nil || row.Deleted {
			continue
		}
		keys = append(keys, row.Key)
	}
	return s.run(ctx, artifact{Scope: issueKeys}, keys)
}

func (s *Service) run(ctx context.Context, art artifact, issueKeys []string) (correlate.Result, error) {
	records, err := s.Commits.FetchAll(ctx)
	if err != nil {
		return correlate.Result{}, err
	}

	commits := make([]correlate.Commit, len(records))
	for i, r := range records {
		c := correlate.Commit{
			Hash:      r.Hash,
			Message:   r.Message,
			Title:     r.Title,
			StoryKeys: r.StoryKeys,
		}
		if r.Branch != nil {
			c.Branch = *r.Branch
		}
		commits[i] = c
	}

	res := correlate.Correlate(issueKeys, commits)

	art.RunID = s.newID()
	art.GeneratedAt = s.now().UTC()
	art.Result = res

	data, err := json.Marshal(art)
	if err != nil {
		return correlate.Result{}, perr.Wrap(err, perr.ErrorCodeUnknown, "marshal correlation artifact")
	}
	name := fmt.Sprintf("correlation_%s_%s.json", art.GeneratedAt.Format(stampLayout), art.RunID)
	if err := s.Sink.Write(ctx, name, data); err != nil {
		return correlate.Result{}, err
	}

	logger.C(ctx).Info().
		Str("run_id", art.RunID).
		Int("total_issues", res.Summary.TotalIssues).
		Int("total_commits", res.Summary.TotalCommits).
		Int("matched_commits", res.Summary.MatchedCommits).
		Int("orphan_commits", res.Summary.OrphanCommits).
		Msg("correlation run complete")
	return res, nil
}
