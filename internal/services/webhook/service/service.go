// Package service provides the webhook ingestion service implementation
package service

import (
	"context"
	"time"

	"shipledger/internal/core/correlate"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
	cdom "shipledger/internal/services/commits/domain"
	codom "shipledger/internal/services/correlation/domain"
	idom "shipledger/internal/services/issues/domain"
	"shipledger/internal/services/webhook/domain"
)

// Service implements domain.IngestPort
type Service struct {
	Issues  idom.WriterPort
	Commits cdom.WriterPort
	Engine  codom.EnginePort

	now func() time.Time
}

// New constructs the webhook ingestion service
func New(issues idom.WriterPort, commits cdom.WriterPort, engine codom.EnginePort) *Service {
	return &Service{Issues: issues, Commits: commits, Engine: engine, now: time.Now}
}

// ApplyJira implements domain.IngestPort
// The touched issue is recorrelated after a successful apply; a rejected
// duplicate counts as success and still triggers the recorrelation
func (s *Service) ApplyJira(ctx context.Context, ev domain.JiraEvent) (domain.JiraResult, error) {
	if !Supported(ev.Type) {
		logger.C(ctx).Info().Str("event_type", ev.Type).Msg("ignoring unsupported webhook event")
		return domain.JiraResult{Ignored: true}, nil
	}

	res := domain.JiraResult{IssueKey: ev.IssueKey, IssueID: ev.IssueID}
	var err error
	if ev.Type == EventIssueDeleted {
		res.Deleted = true
		err = s.tombstone(ctx, ev)
	} else {
		err = s.upsert(ctx, ev)
	}
	if err != nil && !perr.IsConflict(err) {
		return domain.JiraResult{}, perr.Wrap(err, perr.ErrorCodeDB, "apply jira delivery")
	}

	// The delivery is already applied; a recorrelation failure must not
	// make the sender redeliver it. Log and let the operator rerun via
	// the recorrelate endpoint.
	if _, err := s.Engine.Recorrelate(ctx, []string{ev.IssueKey}); err != nil {
		logger.C(ctx).Error().
			Err(err).
			Str("issue_key", ev.IssueKey).
			Str("delivery_id", ev.DeliveryID).
			Msg("recorrelation failed after apply")
	}
	return res, nil
}

func (s *Service) upsert(ctx context.Context, ev domain.JiraEvent) error {
	return s.Issues.Upsert(ctx, idom.Row{
		Key:            ev.IssueKey,
		UpdatedAt:      ev.UpdatedAt,
		Status:         ev.Status,
		Assignee:       ev.Assignee,
		FixVersions:    ev.FixVersions,
		LastEventType:  ev.Type,
		IdempotencyKey: deriveIdempotencyKey(ev),
		ReceivedAt:     s.now().UTC(),
	})
}

func (s *Service) tombstone(ctx context.Context, ev domain.JiraEvent) error {
	updatedAt := ev.UpdatedAt
	if ev.Timestamp != nil {
		updatedAt = *ev.Timestamp
	}
	return s.Issues.Tombstone(ctx, idom.TombstoneEvent{
		Key:            ev.IssueKey,
		UpdatedAt:      updatedAt,
		EventType:      ev.Type,
		IdempotencyKey: deriveIdempotencyKey(ev),
		ReceivedAt:     s.now().UTC(),
	})
}

// Recorrelate implements domain.IngestPort
func (s *Service) Recorrelate(ctx context.Context, fixVersion string, issueKeys []string) (correlate.Result, error) {
	var (
		res correlate.Result
		err error
	)
	if len(issueKeys) > 0 {
		res, err = s.Engine.Recorrelate(ctx, issueKeys)
	} else {
		res, err = s.Engine.Run(ctx, fixVersion)
	}
	if err != nil {
		return correlate.Result{}, perr.Wrap(err, perr.ErrorCodeDB, "recorrelate on demand")
	}
	return res, nil
}

// ApplyBitbucket implements domain.IngestPort
func (s *Service) ApplyBitbucket(ctx context.Context, ev domain.BitbucketEvent) (domain.BitbucketResult, error) {
	res := domain.BitbucketResult{EventKey: ev.EventKey}

	switch ev.EventKey {
	case EventRepoPush, EventPRCreated, EventPRUpdated, EventPRFulfilled:
	default:
		logger.C(ctx).Info().Str("event_key", ev.EventKey).Msg("ignoring unsupported webhook event")
		res.Ignored = true
		return res, nil
	}

	if len(ev.Commits) == 0 {
		logger.C(ctx).Info().Str("event_key", ev.EventKey).Msg("no commits extracted from webhook")
		return res, nil
	}

	n, err := s.Commits.Upsert(ctx, ev.Commits, s.now().UTC())
	if err != nil {
		return domain.BitbucketResult{}, perr.Wrap(err, perr.ErrorCodeDB, "apply bitbucket delivery")
	}
	res.Ingested = n
	return res, nil
}
