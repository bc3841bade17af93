package service

import (
	"encoding/json"
	"time"

	"shipledger/internal/core/storykey"
	perr "shipledger/internal/platform/errors"
	ptime "shipledger/internal/platform/time"
	cdom "shipledger/internal/services/commits/domain"
	"shipledger/internal/services/webhook/domain"
)

// Bitbucket event keys this service ingests
const (
	EventRepoPush    = "repo:push"
	EventPRCreated   = "pullrequest:created"
	EventPRUpdated   = "pullrequest:updated"
	EventPRFulfilled = "pullrequest:fulfilled"
)

type bbEnvelope struct {
	EventKey     string `json:"event_key"`
	EventKeyAlt  string `json:"eventKey"`
	Event        string `json:"event"`
	EventTypeAlt string `json:"eventType"`

	Repository  *bbRepository  `json:"repository"`
	Push        *bbPush        `json:"push"`
	PullRequest *bbPullRequest `json:"pullrequest"`
}

type bbRepository struct {
	FullName string `json:"full_name"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}

type bbPush struct {
	Changes []bbChange `json:"changes"`
}

type bbChange struct {
	New     *bbRef     `json:"new"`
	Old     *bbRef     `json:"old"`
	Commits []bbCommit `json:"commits"`
}

type bbRef struct {
	Name string `json:"name"`
}

type bbCommit struct {
	Hash    string    `json:"hash"`
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Date    string    `json:"date"`
	Author  *bbAuthor `json:"author"`
	Files   []bbFile  `json:"files"`
}

type bbAuthor struct {
	Raw  string  `json:"raw"`
	User *bbUser `json:"user"`
}

type bbUser struct {
	DisplayName string `json:"display_name"`
}

type bbFile struct {
	Path string `json:"path"`
}

type bbPullRequest struct {
	Title   string      `json:"title"`
	Source  *bbPRSource `json:"source"`
	Commits []bbCommit  `json:"commits"`
}

type bbPRSource struct {
	Branch *bbRef `json:"branch"`
}

// ParseBitbucket decodes a raw Bitbucket webhook body into a normalized
// event with its commit records already story-keyed
func ParseBitbucket(body []byte) (domain.BitbucketEvent, error) {
	var env bbEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.BitbucketEvent{}, perr.JSONErrf("invalid webhook payload: %v", err)
	}

	ev := domain.BitbucketEvent{
		EventKey:   resolveEventKey(env),
		Repository: resolveRepository(env.Repository),
	}

	switch ev.EventKey {
	case EventRepoPush:
		ev.Commits = pushCommits(env, ev.Repository)
	case EventPRCreated, EventPRUpdated, EventPRFulfilled:
		ev.Commits = pullRequestCommits(env, ev.Repository)
	}
	return ev, nil
}

func resolveEventKey(env bbEnvelope) string {
	for _, k := range []string{env.EventKey, env.EventKeyAlt, env.Event, env.EventTypeAlt} {
		if k != "" {
			return k
		}
	}
	return "unknown"
}

func resolveRepository(r *bbRepository) string {
	if r == nil {
		return "unknown"
	}
	for _, name := range []string{r.FullName, r.Name, r.Slug} {
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func pushCommits(env bbEnvelope, repository string) []cdom.Record {
	if env.Push == nil {
		return nil
	}
	var out []cdom.Record
	seen := map[string]struct{}{}
	for _, change := range env.Push.Changes {
		branch := changeBranch(change)
		for _, c := range change.Commits {
			rec, ok := normalizeCommit(c, repository, branch, "")
			if !ok {
				continue
			}
			if _, dup := seen[rec.Hash]; dup {
				continue
			}
			seen[rec.Hash] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}

func pullRequestCommits(env bbEnvelope, repository string) []cdom.Record {
	pr := env.PullRequest
	if pr == nil {
		return nil
	}
	var branch string
	if pr.Source != nil && pr.Source.Branch != nil {
		branch = pr.Source.Branch.Name
	}

	var out []cdom.Record
	seen := map[string]struct{}{}
	for _, c := range pr.Commits {
		rec, ok := normalizeCommit(c, repository, branch, pr.Title)
		if !ok {
			continue
		}
		if _, dup := seen[rec.Hash]; dup {
			continue
		}
		seen[rec.Hash] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func changeBranch(change bbChange) string {
	if change.New != nil && change.New.Name != "" {
		return change.New.Name
	}
	if change.Old != nil {
		return change.Old.Name
	}
	return ""
}

func normalizeCommit(c bbCommit, repository, branch, title string) (cdom.Record, bool) {
	hash := c.Hash
	if hash == "" {
		hash = c.ID
	}
	if hash == "" {
		return cdom.Record{}, false
	}

	rec := cdom.Record{
		Repository: repository,
		Hash:       hash,
		Message:    c.Message,
		Title:      title,
		Author:     commitAuthor(c.Author),
		StoryKeys:  storykey.Extract(c.Message, branch, title),
		Source:     cdom.SourceWebhook,
	}
	if branch != "" {
		b := branch
		rec.Branch = &b
	}
	for _, f := range c.Files {
		if f.Path != "" {
			rec.FilesChanged = append(rec.FilesChanged, f.Path)
		}
	}
	if c.Date != "" {
		if t, err := time.Parse(time.RFC3339, c.Date); err == nil {
			rec.ModifiedOn = ptime.Ptr(t.UTC())
		}
	}
	return rec, true
}

func commitAuthor(a *bbAuthor) string {
	if a == nil {
		return ""
	}
	if a.Raw != "" {
		return a.Raw
	}
	if a.User != nil {
		return a.User.DisplayName
	}
	return ""
}
