// Package http provides http transport for webhook ingestion
package http

import (
	"io"
	stdhttp "net/http"
	"time"

	"shipledger/internal/core/correlate"
	"shipledger/internal/modkit/httpkit"
	perr "shipledger/internal/platform/errors"
	phttp "shipledger/internal/platform/net/http"
	svc "shipledger/internal/services/webhook/service"
)

// maxBody caps how much of a webhook delivery is read
const maxBody = 1 << 20

// Register mounts the webhook endpoints
func Register(r httpkit.Router, s *svc.Service, jiraSecret, bitbucketSecret string) {
	h := &handlers{svc: s, jiraSecret: jiraSecret, bitbucketSecret: bitbucketSecret}
	r.Post("/jira", httpkit.Handle(h.jira))
	r.Post("/bitbucket", httpkit.Handle(h.bitbucket))
	r.Post("/recorrelate", phttp.JSONHandler(h.recorrelate))
}

type handlers struct {
	svc             *svc.Service
	jiraSecret      string
	bitbucketSecret string
}

type jiraAck struct {
	OK         bool   `json:"ok"`
	Ignored    bool   `json:"ignored,omitempty"`
	IssueKey   string `json:"issue_key,omitempty"`
	IssueID    string `json:"issue_id,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
	ReceivedAt string `json:"received_at"`
}

func (h *handlers) jira(r *stdhttp.Request) httpkit.Response {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return httpkit.Error(perr.Wrap(err, perr.ErrorCodeValidation, "read webhook body"))
	}

	sig := r.Header.Get("X-Atlassian-Webhook-Signature")
	if err := svc.VerifyJiraSignature(h.jiraSecret, body, sig); err != nil {
		return httpkit.Error(err)
	}

	ev, err := svc.ParseJira(body)
	if err != nil {
		return httpkit.Error(err)
	}

	res, err := h.svc.ApplyJira(r.Context(), ev)
	if err != nil {
		return httpkit.Error(err)
	}

	return accepted(jiraAck{
		OK:         true,
		Ignored:    res.Ignored,
		IssueKey:   res.IssueKey,
		IssueID:    res.IssueID,
		Deleted:    res.Deleted,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

type bitbucketAck struct {
	OK       bool   `json:"ok"`
	Ingested int    `json:"ingested"`
	Ignored  bool   `json:"ignored,omitempty"`
	EventKey string `json:"event_key,omitempty"`
}

func (h *handlers) bitbucket(r *stdhttp.Request) httpkit.Response {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return httpkit.Error(perr.Wrap(err, perr.ErrorCodeValidation, "read webhook body"))
	}

	provided := r.Header.Get("X-Webhook-Secret")
	if err := svc.VerifyBitbucketSecret(h.bitbucketSecret, provided); err != nil {
		return httpkit.Error(err)
	}

	ev, err := svc.ParseBitbucket(body)
	if err != nil {
		return httpkit.Error(err)
	}

	res, err := h.svc.ApplyBitbucket(r.Context(), ev)
	if err != nil {
		return httpkit.Error(err)
	}

	ack := bitbucketAck{OK: true, Ingested: res.Ingested, Ignored: res.Ignored}
	if res.Ignored {
		ack.EventKey = res.EventKey
	}
	return accepted(ack)
}

type recorrelateRequest struct {
	FixVersion string   `json:"fix_version" validate:"required_without=IssueKeys"`
	IssueKeys  []string `json:"issue_keys" validate:"omitempty,dive,issue_key"`
}

type recorrelateAck struct {
	OK      bool              `json:"ok"`
	Matched int               `json:"matched"`
	Summary correlate.Summary `json:"summary"`
}

// recorrelate is the manual trigger used by operators after backfills or
// store repairs; it reruns the engine without waiting for a new delivery
func (h *handlers) recorrelate(r *stdhttp.Request, in recorrelateRequest) (any, error) {
	res, err := h.svc.Recorrelate(r.Context(), in.FixVersion, in.IssueKeys)
	if err != nil {
		return nil, err
	}
	return recorrelateAck{OK: true, Matched: len(res.Matched), Summary: res.Summary}, nil
}

func accepted(body any) httpkit.Response {
	return httpkit.Response{Status: stdhttp.StatusAccepted, Body: body}
}
