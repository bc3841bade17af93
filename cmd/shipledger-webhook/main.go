package main

import (
	"context"
	"fmt"
	"time"

	"shipledger/internal/adapters/artifacts"
	"shipledger/internal/modkit"
	"shipledger/internal/modkit/repokit"
	"shipledger/internal/platform/config"
	"shipledger/internal/platform/logger"
	phttp "shipledger/internal/platform/net/http"
	"shipledger/internal/platform/store"

	commitsmod "shipledger/internal/services/commits/module"
	corrmod "shipledger/internal/services/correlation/module"
	issuesmod "shipledger/internal/services/issues/module"
	webhookmod "shipledger/internal/services/webhook/module"
)

func main() {
	root := config.New()
	whCfg := root.Prefix("CORE_WEBHOOK_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()

	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:        true,
				URL:            pgCfg.MustString("DBURL"),
				MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:         pgCfg.MayBool("LOG_SQL", true),
				ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 6),
				PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 5*time.Second),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(context.Background(), st)

	// every transaction carries a server side statement timeout
	txTimeoutMs := pgCfg.MayInt("TX_TIMEOUT_MS", 5000)
	pg := repokit.WithBeginHooks(st.PG, func(ctx context.Context, q repokit.Queryer) error {
		_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", txTimeoutMs))
		return err
	})

	deps := modkit.Deps{
		Cfg: root,
		PG:  pg,
		Log: *l,
	}

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
	corrPorts := corr.Ports().(corrmod.Ports)

	wh := webhookmod.New(deps, modkit.WithPorts(webhookmod.Inputs{
		Issues:  ip.Writer,
		Commits: cp.Writer,
		Engine:  corrPorts.Engine,
	}))

	// http server (reads CORE_WEBHOOK_API_PORT)
	srv := phttp.NewServer(whCfg)
	r := srv.Router()
	r.Use(wh.Middlewares()...)
	wh.MountRoutes(r)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
