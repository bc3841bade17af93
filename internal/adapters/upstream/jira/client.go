// Package jira fetches issues for a fix version through the resilient
// httpx core, with search pagination and opt-in response caching
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shipledger/internal/adapters/upstream/httpx"
	"shipledger/internal/adapters/upstream/respcache"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
)

const (
	searchPath      = "/rest/api/2/search"
	defaultPageSize = 50
	searchFields    = "status,assignee,fixVersions,updated"
)

// Issue is the normalized issue shape the rest of the system consumes
type Issue struct {
	Key         string
	Status      string
	Assignee    string
	FixVersions []string
	UpdatedAt   time.Time
}

// Options configures a Client
type Options struct {
	PageSize int
}

// Client pages through Jira search results
type Client struct {
	core   *httpx.Client
	tokens TokenSource
	cache  *respcache.Cache
	opts   Options
	log    logger.Logger
}

// FetchInput selects the issues to fetch
type FetchInput struct {
	FixVersion string
	UseCache   bool
}

// New builds a Client; cache may be nil to disable caching entirely
func New(core *httpx.Client, tokens TokenSource, cache *respcache.Cache, o Options) *Client {
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	return &Client{
		core:   core,
		tokens: tokens,
		cache:  cache,
		opts:   o,
		log:    *logger.Named("jira"),
	}
}

// searchPage mirrors the slice of the search response we consume
type searchPage struct {
	StartAt    int               `json:"startAt"`
	MaxResults int               `json:"maxResults"`
	Total      int               `json:"total"`
	Issues     []json.RawMessage `json:"issues"`
}

// FetchIssues returns all issues for the fix version plus the cache key used
// With UseCache set, a cache hit skips the network entirely; every
// successful fetch rewrites the cache regardless
func (c *Client) FetchIssues(ctx context.Context, in FetchInput) ([]Issue, string, error) {
	key := respcache.Key("jira", in.FixVersion)

	if in.UseCache && c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			c.log.Debug().Str("cache_key", key).Msg("serving issues from cache")
			issues, err := decodeIssues(raw)
			return issues, key, err
		}
	}

	jql := fmt.Sprintf("fixVersion = %q ORDER BY key", in.FixVersion)

	var all []json.RawMessage
	startAt := 0
	for {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, key, err
		}

		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(c.opts.PageSize))
		q.Set("fields", searchFields)

		hdr := http.Header{}
		hdr.Set("Authorization", "Bearer "+tok)

		resp, err := c.core.Do(ctx, httpx.Request{
			Method: http.MethodGet,
			Path:   searchPath,
			Query:  q,
			Header: hdr,
		})
		if err != nil {
			return nil, key, err
		}

		var page searchPage
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, key, perr.Wrap(err, perr.ErrorCodeJSON, "jira search decode failed")
		}

		all = append(all, page.Issues...)
		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	raw, err := json.Marshal(all)
	if err != nil {
		return nil, key, perr.Wrap(err, perr.ErrorCodeJSON, "jira cache encode failed")
	}
	if c.cache != nil {
		if err := c.cache.Put(key, raw); err != nil {
			c.log.Warn().Err(err).Str("cache_key", key).Msg("cache write failed")
		}
	}

	issues, err := decodeIssues(raw)
	if err != nil {
		return nil, key, err
	}
	c.log.Info().Str("fix_version", in.FixVersion).Int("issues", len(issues)).Msg("jira fetch complete")
	return issues, key, nil
}

// rawIssue mirrors the fields we consume from one search result
type rawIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		FixVersions []struct {
			Name string `json:"name"`
		} `json:"fixVersions"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

func decodeIssues(raw []byte) ([]Issue, error) {
	var rows []rawIssue
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "jira issues decode failed")
	}
	out := make([]Issue, 0, len(rows))
	for _, r := range rows {
		iss := Issue{
			Key:       r.Key,
			Status:    r.Fields.Status.Name,
			Assignee:  r.Fields.Assignee.DisplayName,
			UpdatedAt: parseTime(r.Fields.Updated),
		}
		for _, fv := range r.Fields.FixVersions {
			iss.FixVersions = append(iss.FixVersions, fv.Name)
		}
		out = append(out, iss)
	}
	return out, nil
}

// parseTime handles the Atlassian offset format and RFC3339
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
