// Package module wires the issues service into a mountable unit
package module

import (
	"shipledger/internal/modkit"
	"shipledger/internal/modkit/httpkit"
	"shipledger/internal/modkit/repokit"
	"shipledger/internal/services/issues/domain"
	"shipledger/internal/services/issues/repo"
	"shipledger/internal/services/issues/service"
)

// Ports is what other modules see of the issues store
type Ports struct {
	Writer domain.WriterPort
	Reader domain.ReaderPort
}

// Module owns the issues service and its repo binding
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New builds the issues module from shared deps. The service fronts a
// single postgres-backed repo; both ports resolve to it.
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

func (m *Module) Name() string { return "issues" }

func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; issues are written through the webhook module
// and read through scan, never over HTTP directly
func (m *Module) MountRoutes(httpkit.Router) {}
