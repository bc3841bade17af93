// Package module wires the scan runner into a mountable unit
package module

import (
	"shipledger/internal/modkit"
	"shipledger/internal/modkit/httpkit"
	cdom "shipledger/internal/services/commits/domain"
	codom "shipledger/internal/services/correlation/domain"
	idom "shipledger/internal/services/issues/domain"
	"shipledger/internal/services/scan/domain"
	"shipledger/internal/services/scan/service"
)

// Inputs carries the ports the runner consumes.
//
// Jira is optional; a nil fetcher leaves the issue projection untouched
// and scans against whatever the store holds
type Inputs struct {
	Jira      domain.IssueFetcher
	Bitbucket domain.CommitFetcher
	Issues    idom.WriterPort
	Commits   cdom.WriterPort
	Engine    codom.EnginePort
}

// Ports is what other modules see of the runner
type Ports struct {
	Runner domain.RunnerPort
}

// Module owns the scan runner
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New builds the scan module. Inputs arrive through modkit.WithPorts so
// the binary decides which upstreams and stores feed the runner.
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("scan"),
	}, opts...)...)

	in, ok := b.Ports.(Inputs)
	if !ok || in.Bitbucket == nil || in.Issues == nil || in.Commits == nil || in.Engine == nil {
		panic("scan module requires Bitbucket, Issues, Commits and Engine ports")
	}

	return &Module{
		deps:  deps,
		ports: Ports{Runner: service.New(in.Jira, in.Bitbucket, in.Issues, in.Commits, in.Engine)},
	}
}

func (m *Module) Name() string { return "scan" }

func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; scans start from the CLI binary, not HTTP
func (m *Module) MountRoutes(httpkit.Router) {}
