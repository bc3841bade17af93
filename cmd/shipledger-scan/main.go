package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"shipledger/internal/adapters/artifacts"
	"shipledger/internal/adapters/upstream/bitbucket"
	"shipledger/internal/adapters/upstream/httpx"
	"shipledger/internal/adapters/upstream/jira"
	"shipledger/internal/adapters/upstream/respcache"
	"shipledger/internal/modkit"
	"shipledger/internal/modkit/repokit"
	"shipledger/internal/platform/config"
	"shipledger/internal/platform/logger"
	"shipledger/internal/platform/store"

	commitsmod "shipledger/internal/services/commits/module"
	corrmod "shipledger/internal/services/correlation/module"
	issuesmod "shipledger/internal/services/issues/module"
	scandom "shipledger/internal/services/scan/domain"
	scanmod "shipledger/internal/services/scan/module"
)

const freezeLayout = "2006-01-02"

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	jiraCfg := root.Prefix("SERVICE_JIRA_")
	bbCfg := root.Prefix("SERVICE_BITBUCKET_")

	l := logger.Get()

	var (
		fFixVersion = flag.String("fix-version", "", "fix version to audit, required")
		fRepos      = flag.String("repos", "", "comma separated repository slugs")
		fBranches   = flag.String("branches", "", "comma separated branch names")
		fFreeze     = flag.String("freeze", "", "freeze date YYYY-MM-DD, defaults to today")
		fWindow     = flag.Int("window", 0, "days of commit history before the freeze date")
		fUseCache   = flag.Bool("use-cache", false, "serve upstream responses from the local cache when present")
	)
	flag.Parse()

	if *fFixVersion == "" {
		l.Panic().Msg("must provide -fix-version")
	}
	var freeze time.Time
	if *fFreeze != "" {
		t, err := time.Parse(freezeLayout, *fFreeze)
		if err != nil {
			l.Panic().Err(err).Msg("bad -freeze")
		}
		freeze = t.UTC()
	}

	scanOpts := scanmod.FromConfig(root)
	window := *fWindow
	if window <= 0 {
		window = scanOpts.WindowDays
	}
	useCache := *fUseCache || scanOpts.UseCache

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:        true,
			URL:            pgCfg.MustString("DBURL"),
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", true),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 6),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 5*time.Second),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(context.Background(), st)

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	cache := respcache.New(root.Prefix("CORE_SCAN_").MayString("CACHE_DIR", ".cache"))

	// Jira is optional; without a base URL the scan runs against the
	// issue projection already in the store
	var issueFetcher scandom.IssueFetcher
	if base := jiraCfg.MayString("BASE_URL", ""); base != "" {
		core := httpx.New(httpx.Options{BaseURL: base, Name: "jira"})
		issueFetcher = jira.New(core, jiraTokens(jiraCfg), cache, jira.Options{
			PageSize: jiraCfg.MayInt("PAGE_SIZE", 50),
		})
	}

	bbBase := bbCfg.MayString("BASE_URL", "https://api.bitbucket.org/2.0")
	bbCore := httpx.New(httpx.Options{BaseURL: bbBase, Name: "bitbucket"})
	commitFetcher := bitbucket.New(bbCore, cache, bbBase, bitbucket.Options{
		Workspace: bbCfg.MustString("WORKSPACE"),
		Auth: bitbucket.Auth{
			Username:    bbCfg.MayString("USERNAME", ""),
			AppPassword: bbCfg.MayString("APP_PASSWORD", ""),
			Bearer:      bbCfg.MayString("BEARER", ""),
		},
		PageLen: bbCfg.MayInt("PAGE_LEN", 100),
	})

	cm := commitsmod.New(deps)
	im := issuesmod.New(deps)
	cp := cm.Ports().(commitsmod.Ports)
	ip := im.Ports().(issuesmod.Ports)

	sink := artifacts.NewFS(root.Prefix("CORE_CORRELATION_").MayString("ARTIFACT_DIR", "artifacts"))
	corr := corrmod.New(deps, modkit.WithPorts(corrmod.Inputs{
		Issues:  ip.Reader,
		Commits: cp.Reader,
		Sink:    sink,
	}))

	sm := scanmod.New(deps, modkit.WithPorts(scanmod.Inputs{
		Jira:      issueFetcher,
		Bitbucket: commitFetcher,
		Issues:    ip.Writer,
		Commits:   cp.Writer,
		Engine:    corr.Ports().(corrmod.Ports).Engine,
	}))

	// flags win; env fills in when a flag was not given
	repos := splitCSV(*fRepos)
	if len(repos) == 0 {
		repos = bbCfg.MayCSV("REPOS", nil)
	}
	branches := splitCSV(*fBranches)
	if len(branches) == 0 {
		branches = bbCfg.MayCSV("BRANCHES", nil)
	}

	rep, err := sm.Ports().(scanmod.Ports).Runner.Scan(context.Background(), scandom.Input{
		FixVersion: *fFixVersion,
		Repos:      repos,
		Branches:   branches,
		FreezeDate: freeze,
		WindowDays: window,
		UseCache:   useCache,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("scan failed")
	}

	l.Info().
		Str("fix_version", rep.FixVersion).
		Int("issues", rep.Issues).
		Int("commits_fetched", rep.CommitsFetched).
		Int("commits_stored", rep.CommitsStored).
		Int("matched", rep.Result.Summary.MatchedCommits).
		Int("orphans", rep.Result.Summary.OrphanCommits).
		Msg("scan finished")
}

// jiraTokens builds the token source from SERVICE_JIRA_* config. A
// refresh token switches the client to OAuth rotation; otherwise TOKEN
// is required and used as a static bearer.
func jiraTokens(cfg config.Conf) jira.TokenSource {
	oauth := jira.OAuthConfig{
		TokenURL:     cfg.MayString("TOKEN_URL", ""),
		ClientID:     cfg.MayString("CLIENT_ID", ""),
		ClientSecret: cfg.MayString("CLIENT_SECRET", ""),
		RefreshToken: cfg.MayString("REFRESH_TOKEN", ""),
	}
	token := cfg.MayString("TOKEN", "")
	if oauth.RefreshToken == "" && token == "" {
		logger.Get().Panic().Msg("SERVICE_JIRA_TOKEN or SERVICE_JIRA_REFRESH_TOKEN must be set")
	}
	return jira.NewSource(httpx.New(httpx.Options{Name: "jira-oauth"}), token, oauth)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
