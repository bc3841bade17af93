package modkit

import (
	phttp "shipledger/internal/platform/net/http"
)

// Module is the surface every service module exposes to the binaries.
// Kept tiny so modules only couple through Ports.
type Module interface {
	// MountRoutes registers the module's HTTP routes on the router seam
	MountRoutes(r phttp.Router)

	// Ports returns the module's cross-wiring interface; callers type
	// assert to the module's concrete Ports type
	Ports() any

	// Name identifies the module in logs and mount bookkeeping
	Name() string
}
