package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"shipledger/internal/adapters/upstream/httpx"
	perr "shipledger/internal/platform/errors"
)

// expirySlack refreshes slightly early so a token never expires mid request
const expirySlack = 30 * time.Second

// TokenSource yields a bearer token for outbound requests
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token
type StaticToken string

// Token returns the fixed token
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// OAuthConfig configures refresh-token rotation against a token endpoint
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// NewSource picks the auth mode from config: refresh-token rotation when
// a refresh token is present, otherwise the static bearer token. core is
// only used by the rotating source and must carry no BaseURL.
func NewSource(core *httpx.Client, token string, oauth OAuthConfig) TokenSource {
	if oauth.RefreshToken != "" {
		return NewRefreshingSource(core, oauth)
	}
	return StaticToken(token)
}

// RefreshingSource exchanges a refresh token for short-lived access
// tokens, caching the access token until it is within expirySlack of
// expiry. Safe for concurrent use
type RefreshingSource struct {
	core *httpx.Client
	cfg  OAuthConfig

	mu      sync.Mutex
	access  string
	refresh string
	expiry  time.Time
	now     func() time.Time
}

// NewRefreshingSource builds a source around the shared httpx core
// The core's BaseURL must be empty so TokenURL is used verbatim
func NewRefreshingSource(core *httpx.Client, cfg OAuthConfig) *RefreshingSource {
	return &RefreshingSource{
		core:    core,
		cfg:     cfg,
		refresh: cfg.RefreshToken,
		now:     time.Now,
	}
}

// Token returns the cached access token, refreshing when stale
func (s *RefreshingSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.access != "" && s.now().Before(s.expiry.Add(-expirySlack)) {
		return s.access, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.refresh)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	resp, err := s.core.Do(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   s.cfg.TokenURL,
		Form:   form,
	})
	if err != nil {
		return "", perr.WrapIf(err, perr.ErrorCodeUnauthorized, "token refresh failed")
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeJSON, "token response decode failed")
	}
	if body.AccessToken == "" {
		return "", perr.Unauthorizedf("token endpoint returned no access token")
	}

	s.access = body.AccessToken
	s.expiry = s.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	if body.RefreshToken != "" {
		// rotation: the endpoint may hand back a replacement
		s.refresh = body.RefreshToken
	}
	return s.access, nil
}
