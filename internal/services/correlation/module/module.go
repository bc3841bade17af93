// Package module wires the correlation engine into a mountable unit
package module

import (
	"shipledger/internal/modkit"
	"shipledger/internal/modkit/httpkit"
	cdom "shipledger/internal/services/commits/domain"
	"shipledger/internal/services/correlation/domain"
	"shipledger/internal/services/correlation/service"
	idom "shipledger/internal/services/issues/domain"
)

// Inputs carries the ports the engine consumes; all three are required
type Inputs struct {
	Issues  idom.ReaderPort
	Commits cdom.ReaderPort
	Sink    domain.ArtifactSink
}

// Ports is what other modules see of the engine
type Ports struct {
	Engine domain.EnginePort
}

// Module owns the correlation engine
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New builds the correlation module. Inputs arrive through
// modkit.WithPorts so the binary decides which stores feed the engine.
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("correlation"),
	}, opts...)...)

	in, ok := b.Ports.(Inputs)
	if !ok || in.Issues == nil || in.Commits == nil || in.Sink == nil {
		panic("correlation module requires Issues, Commits and Sink ports")
	}

	return &Module{
		deps:  deps,
		ports: Ports{Engine: service.New(in.Issues, in.Commits, in.Sink)},
	}
}

func (m *Module) Name() string { return "correlation" }

func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; the engine runs behind webhook and scan
func (m *Module) MountRoutes(httpkit.Router) {}
