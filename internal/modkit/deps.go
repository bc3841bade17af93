// Package modkit provides module wiring and the shared dependency set
// handed to every service module.
package modkit

import (
	"shipledger/internal/modkit/repokit"
	"shipledger/internal/platform/config"
	"shipledger/internal/platform/logger"
)

// Deps carries the process-wide dependencies a module may need. It is
// plain wiring; modules nil-check optional seams themselves.
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
}
