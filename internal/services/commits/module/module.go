// Package module wires the commits service into a mountable unit
package module

import (
	"shipledger/internal/modkit"
	"shipledger/internal/modkit/httpkit"
	"shipledger/internal/modkit/repokit"
	"shipledger/internal/services/commits/domain"
	"shipledger/internal/services/commits/repo"
	"shipledger/internal/services/commits/service"
)

// Ports is what other modules see of the commits store
type Ports struct {
	Writer domain.WriterPort
	Reader domain.ReaderPort
}

// Module owns the commits service and its repo binding
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New builds the commits module from shared deps. One postgres-backed
// repo serves both the writer and reader ports.
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		StoreAttempts: opts.StoreAttempts,
	})

	return &Module{
		deps:  deps,
		ports: Ports{Writer: svc, Reader: svc},
	}
}

func (m *Module) Name() string { return "commits" }

func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; commits arrive through the webhook module and
// are read by correlation and scan in-process
func (m *Module) MountRoutes(httpkit.Router) {}
