package jira

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"shipledger/internal/adapters/upstream/httpx"
	"shipledger/internal/adapters/upstream/respcache"
)

// replayTransport returns canned bodies and records the requests it saw
type replayTransport struct {
	bodies []string
	status []int
	seen   []*http.Request
}

func (rt *replayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	i := len(rt.seen)
	rt.seen = append(rt.seen, req)
	if i >= len(rt.bodies) {
		return nil, errors.New("transport called past script end")
	}
	status := http.StatusOK
	if i < len(rt.status) {
		status = rt.status[i]
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte(rt.bodies[i]))),
		Request:    req,
	}, nil
}

func newCore(rt *replayTransport) *httpx.Client {
	return httpx.New(httpx.Options{
		BaseURL:        "https://jira.example.test",
		Name:           "jira",
		Transport:      rt,
		DisableRetries: true,
	})
}

const (
	pageOne = `{"startAt":0,"maxResults":2,"total":3,"issues":[
		{"key":"APP-1","fields":{"status":{"name":"Done"},"assignee":{"displayName":"Dana"},
		 "fixVersions":[{"name":"1.2.0"}],"updated":"2026-01-05T10:00:00.000+0000"}},
		{"key":"APP-2","fields":{"status":{"name":"In Progress"},"assignee":null,
		 "fixVersions":[{"name":"1.2.0"}],"updated":"2026-01-06T11:30:00.000+0000"}}]}`
	pageTwo = `{"startAt":2,"maxResults":2,"total":3,"issues":[
		{"key":"APP-3","fields":{"status":{"name":"To Do"},"assignee":{"displayName":"Kim"},
		 "fixVersions":[{"name":"1.2.0"},{"name":"1.3.0"}],"updated":"2026-01-07T09:15:00.000+0000"}}]}`
)

func TestFetchIssues_PaginatesUntilTotal(t *testing.T) {
	t.Parallel()

	rt := &replayTransport{bodies: []string{pageOne, pageTwo}}
	c := New(newCore(rt), StaticToken("tok-abc"), nil, Options{PageSize: 2})

	issues, key, err := c.FetchIssues(context.Background(), FetchInput{FixVersion: "1.2.0"})
	if err != nil {
		t.Fatalf("FetchIssues: %v", err)
	}
	if key != "jira_1.2.0" {
		t.Fatalf("cache key = %q", key)
	}
	if len(rt.seen) != 2 {
		t.Fatalf("requests = %d, want 2", len(rt.seen))
	}
	if len(issues) != 3 {
		t.Fatalf("issues = %d, want 3", len(issues))
	}

	if got := rt.seen[0].URL.Query().Get("startAt"); got != "0" {
		t.Fatalf("first startAt = %q", got)
	}
	if got := rt.seen[1].URL.Query().Get("startAt"); got != "2" {
		t.Fatalf("second startAt = %q", got)
	}
	if got := rt.seen[0].Header.Get("Authorization"); got != "Bearer tok-abc" {
		t.Fatalf("auth header = %q", got)
	}

	if issues[0].Key != "APP-1" || issues[0].Status != "Done" || issues[0].Assignee != "Dana" {
		t.Fatalf("issue[0] = %+v", issues[0])
	}
	if issues[1].Assignee != "" {
		t.Fatalf("null assignee should map to empty, got %q", issues[1].Assignee)
	}
	want := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	if !issues[0].UpdatedAt.Equal(want) {
		t.Fatalf("UpdatedAt = %v, want %v", issues[0].UpdatedAt, want)
	}
	if len(issues[2].FixVersions) != 2 {
		t.Fatalf("FixVersions = %v", issues[2].FixVersions)
	}
}

func TestFetchIssues_CacheHitSkipsNetwork(t *testing.T) {
	t.Parallel()

	cache := respcache.New(t.TempDir())

	// first fetch populates the cache
	rt := &replayTransport{bodies: []string{pageOne, pageTwo}}
	c := New(newCore(rt), StaticToken("t"), cache, Options{PageSize: 2})
	if _, _, err := c.FetchIssues(context.Background(), FetchInput{FixVersion: "1.2.0"}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	// second client has a transport that fails if touched
	rt2 := &replayTransport{}
	c2 := New(newCore(rt2), StaticToken("t"), cache, Options{PageSize: 2})
	issues, key, err := c2.FetchIssues(context.Background(), FetchInput{FixVersion: "1.2.0", UseCache: true})
	if err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if len(rt2.seen) != 0 {
		t.Fatalf("network touched on cache hit: %d requests", len(rt2.seen))
	}
	if len(issues) != 3 || key != "jira_1.2.0" {
		t.Fatalf("cached result: %d issues key=%q", len(issues), key)
	}
}

func TestFetchIssues_CacheOptOutRefetches(t *testing.T) {
	t.Parallel()

	cache := respcache.New(t.TempDir())

	rt := &replayTransport{bodies: []string{pageOne, pageTwo}}
	c := New(newCore(rt), StaticToken("t"), cache, Options{PageSize: 2})
	if _, _, err := c.FetchIssues(context.Background(), FetchInput{FixVersion: "1.2.0"}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	// UseCache false always goes to the network even with a warm cache
	rt2 := &replayTransport{bodies: []string{pageOne, pageTwo}}
	c2 := New(newCore(rt2), StaticToken("t"), cache, Options{PageSize: 2})
	if _, _, err := c2.FetchIssues(context.Background(), FetchInput{FixVersion: "1.2.0"}); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(rt2.seen) != 2 {
		t.Fatalf("expected network refetch, saw %d requests", len(rt2.seen))
	}
}

func TestRefreshingSource_CachesUntilSlack(t *testing.T) {
	t.Parallel()

	rt := &replayTransport{bodies: []string{
		`{"access_token":"first","expires_in":3600}`,
		`{"access_token":"second","expires_in":3600,"refresh_token":"rotated"}`,
	}}
	core := httpx.New(httpx.Options{Name: "jira-oauth", Transport: rt, DisableRetries: true})

	src := NewRefreshingSource(core, OAuthConfig{
		TokenURL:     "https://auth.example.test/oauth/token",
		ClientID:     "cid",
		ClientSecret: "cs",
		RefreshToken: "r1",
	})

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return base }

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "first" {
		t.Fatalf("token = %q", tok)
	}
	if got := rt.seen[0].URL.String(); got != "https://auth.example.test/oauth/token" {
		t.Fatalf("token url = %q", got)
	}

	// well before expiry: cached, no extra request
	src.now = func() time.Time { return base.Add(30 * time.Minute) }
	if tok, _ = src.Token(context.Background()); tok != "first" || len(rt.seen) != 1 {
		t.Fatalf("expected cached token, got %q after %d requests", tok, len(rt.seen))
	}

	// within 30s of expiry: refreshed, rotation applied
	src.now = func() time.Time { return base.Add(3600*time.Second - 10*time.Second) }
	if tok, _ = src.Token(context.Background()); tok != "second" || len(rt.seen) != 2 {
		t.Fatalf("expected refresh, got %q after %d requests", tok, len(rt.seen))
	}
	if src.refresh != "rotated" {
		t.Fatalf("refresh token not rotated: %q", src.refresh)
	}

	// the refresh grant must be in the form body
	body, _ := io.ReadAll(rt.seen[1].Body)
	if !bytes.Contains(body, []byte("grant_type=refresh_token")) || !bytes.Contains(body, []byte("refresh_token=r1")) {
		t.Fatalf("form body = %s", body)
	}
}

func TestNewSource_PicksModeFromConfig(t *testing.T) {
	t.Parallel()

	core := httpx.New(httpx.Options{Name: "jira-oauth"})

	src := NewSource(core, "", OAuthConfig{
		TokenURL:     "https://auth.example.test/oauth/token",
		ClientID:     "cid",
		ClientSecret: "cs",
		RefreshToken: "r1",
	})
	if _, ok := src.(*RefreshingSource); !ok {
		t.Fatalf("expected rotating source with a refresh token, got %T", src)
	}

	src = NewSource(core, "tok-abc", OAuthConfig{})
	if src != StaticToken("tok-abc") {
		t.Fatalf("expected static token without a refresh token, got %#v", src)
	}
}
