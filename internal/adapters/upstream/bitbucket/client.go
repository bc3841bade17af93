// Package bitbucket fetches commits per repository and branch through
// the resilient httpx core, following next links until exhausted
package bitbucket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shipledger/internal/adapters/upstream/httpx"
	"shipledger/internal/adapters/upstream/respcache"
	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
)

const (
	defaultPageLen = 100
	dateLayout     = "20060102"
)

// Commit is the normalized commit shape with repo and branch stamped on
type Commit struct {
	Hash       string
	Repository string
	Branch     string
	Message    string
	Author     string
	Date       time.Time
}

// Auth selects basic (username and app password) or bearer auth
type Auth struct {
	Username    string
	AppPassword string
	Bearer      string
}

func (a Auth) header() string {
	if a.Bearer != "" {
		return "Bearer " + a.Bearer
	}
	if a.Username != "" {
		cred := a.Username + ":" + a.AppPassword
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
	}
	return ""
}

// Options configures a Client
type Options struct {
	Workspace string
	Auth      Auth
	PageLen   int
}

// Client pages commit history per repo and branch
type Client struct {
	core    *httpx.Client
	cache   *respcache.Cache
	opts    Options
	baseURL string
	log     logger.Logger
}

// FetchInput selects the commit windows to fetch
type FetchInput struct {
	Repos    []string
	Branches []string
	Start    time.Time
	End      time.Time
	UseCache bool
}

// New builds a Client; baseURL is needed to relativize next links and
// must match the core's BaseURL. cache may be nil
func New(core *httpx.Client, cache *respcache.Cache, baseURL string, o Options) *Client {
	if o.PageLen <= 0 {
		o.PageLen = defaultPageLen
	}
	return &Client{
		core:    core,
		cache:   cache,
		opts:    o,
		baseURL: baseURL,
		log:     *logger.Named("bitbucket"),
	}
}

// commitsPage mirrors the slice of the commits response we consume
type commitsPage struct {
	Values []json.RawMessage `json:"values"`
	Next   string            `json:"next"`
}

// FetchCommits returns all commits across repos and branches in the
// window plus the cache keys used, one per repo and branch pair
func (c *Client) FetchCommits(ctx context.Context, in FetchInput) ([]Commit, []string, error) {
	var all []Commit
	var keys []string
	for _, repo := range in.Repos {
		for _, branch := range in.Branches {
			commits, key, err := c.fetchPair(ctx, repo, branch, in)
			if err != nil {
				return nil, keys, err
			}
			all = append(all, commits...)
			keys = append(keys, key)
		}
	}
	c.log.Info().Int("commits", len(all)).Int("queries", len(keys)).Msg("bitbucket fetch complete")
	return all, keys, nil
}

func (c *Client) fetchPair(ctx context.Context, repo, branch string, in FetchInput) ([]Commit, string, error) {
	key := respcache.Key("bitbucket", repo, branch, in.Start.Format(dateLayout), in.End.Format(dateLayout))

	if in.UseCache && c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			c.log.Debug().Str("cache_key", key).Msg("serving commits from cache")
			commits, err := decodeCommits(raw, repo, branch)
			return commits, key, err
		}
	}

	q := url.Values{}
	q.Set("pagelen", fmt.Sprintf("%d", c.opts.PageLen))
	q.Set("q", fmt.Sprintf("date >= %s AND date <= %s",
		in.Start.UTC().Format(time.RFC3339), in.End.UTC().Format(time.RFC3339)))

	hdr := http.Header{}
	if auth := c.opts.Auth.header(); auth != "" {
		hdr.Set("Authorization", auth)
	}

	path := fmt.Sprintf("/2.0/repositories/%s/%s/commits/%s", c.opts.Workspace, repo, branch)
	req := httpx.Request{Method: http.MethodGet, Path: path, Query: q, Header: hdr}

	var raws []json.RawMessage
	for {
		resp, err := c.core.Do(ctx, req)
		if err != nil {
			return nil, key, err
		}

		var page commitsPage
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, key, perr.Wrap(err, perr.ErrorCodeJSON, "bitbucket commits decode failed")
		}
		raws = append(raws, page.Values...)

		if page.Next == "" {
			break
		}
		next, err := c.relativize(page.Next)
		if err != nil {
			return nil, key, err
		}
		// next links carry their own query string
		req = httpx.Request{Method: http.MethodGet, Path: next, Header: hdr}
	}

	raw, err := json.Marshal(raws)
	if err != nil {
		return nil, key, perr.Wrap(err, perr.ErrorCodeJSON, "bitbucket cache encode failed")
	}
	if c.cache != nil {
		if err := c.cache.Put(key, raw); err != nil {
			c.log.Warn().Err(err).Str("cache_key", key).Msg("cache write failed")
		}
	}

	commits, err := decodeCommits(raw, repo, branch)
	return commits, key, err
}

// relativize strips the configured base so next links route through core
func (c *Client) relativize(next string) (string, error) {
	if strings.HasPrefix(next, c.baseURL) {
		return strings.TrimPrefix(next, c.baseURL), nil
	}
	if strings.HasPrefix(next, "/") {
		return next, nil
	}
	return "", perr.UpstreamPermanentf("bitbucket next link outside base url: %s", next)
}

// rawCommit mirrors the fields we consume from one commit value
type rawCommit struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Author  struct {
		Raw string `json:"raw"`
	} `json:"author"`
}

func decodeCommits(raw []byte, repo, branch string) ([]Commit, error) {
	var rows []rawCommit
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "bitbucket commits decode failed")
	}
	out := make([]Commit, 0, len(rows))
	for _, r := range rows {
		var at time.Time
		if t, err := time.Parse(time.RFC3339, r.Date); err == nil {
			at = t.UTC()
		}
		out = append(out, Commit{
			Hash:       r.Hash,
			Repository: repo,
			Branch:     branch,
			Message:    r.Message,
			Author:     r.Author.Raw,
			Date:       at,
		})
	}
	return out, nil
}
