// Package module wires webhook ingestion into the app using modkit
package module

import (
	"context"
	stdhttp "net/http"

	"shipledger/internal/adapters/secrets"
	"shipledger/internal/modkit"
	"shipledger/internal/modkit/httpkit"
	"shipledger/internal/platform/logger"
	"shipledger/internal/platform/net/middleware"
	cdom "shipledger/internal/services/commits/domain"
	codom "shipledger/internal/services/correlation/domain"
	idom "shipledger/internal/services/issues/domain"
	"shipledger/internal/services/webhook/domain"
	whhttp "shipledger/internal/services/webhook/http"
	"shipledger/internal/services/webhook/service"
)

// Inputs declares the required injected ports for this module
type Inputs struct {
	Issues   idom.WriterPort
	Commits  cdom.WriterPort
	Engine   codom.EnginePort
	Resolver secrets.Resolver
}

// Ports exposed by the webhook module
type Ports struct {
	Ingest domain.IngestPort
}

// Module implements modkit.Module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	ports  Ports

	svc             *service.Service
	jiraSecret      string
	bitbucketSecret string
	maxInFlight     int
}

// New constructs the webhook module
// Secrets are resolved once at wiring time; a missing secret disables the
// corresponding auth check
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("webhook"),
		modkit.WithPrefix("/hooks"),
	}, opts...)...)

	in, ok := b.Ports.(Inputs)
	if !ok || in.Issues == nil || in.Commits == nil || in.Engine == nil {
		panic("webhook module requires Issues, Commits and Engine ports")
	}
	if in.Resolver == nil {
		in.Resolver = secrets.Env{}
	}

	cfg := FromConfig(deps.Cfg)
	svc := service.New(in.Issues, in.Commits, in.Engine)

	m := &Module{
		deps:            deps,
		name:            b.Name,
		prefix:          b.Prefix,
		svc:             svc,
		jiraSecret:      resolveSecret(in.Resolver, cfg.JiraSecretName),
		bitbucketSecret: resolveSecret(in.Resolver, cfg.BitbucketSecretName),
		maxInFlight:     cfg.MaxInFlight,
	}
	m.ports = Ports{Ingest: svc}
	return m
}

func resolveSecret(r secrets.Resolver, name string) string {
	if name == "" {
		return ""
	}
	v, err := r.Resolve(context.Background(), name)
	if err != nil {
		logger.Named("webhook").Warn().Str("secret", name).Err(err).Msg("secret resolution failed; auth disabled")
		return ""
	}
	return v
}

// Name implements modkit.Module
func (m *Module) Name() string { return m.name }

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.ports }

// Prefix implements modkit.Module
func (m *Module) Prefix() string { return m.prefix }

// Middlewares implements modkit.Module
func (m *Module) Middlewares() []func(stdhttp.Handler) stdhttp.Handler {
	return httpkit.CommonStack()
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	mw := []func(stdhttp.Handler) stdhttp.Handler{
		middleware.AllowContentType("application/json"),
		middleware.Throttle(m.maxInFlight),
	}
	httpkit.MountUnder(r, m.prefix, mw, func(rr httpkit.Router) {
		whhttp.Register(rr, m.svc, m.jiraSecret, m.bitbucketSecret)
	})
}
