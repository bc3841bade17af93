package module

import (
	"shipledger/internal/platform/config"
)

// Options configures the issues module
type Options struct {
	StoreAttempts int
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	nf := cfg.Prefix("CORE_ISSUES_")
	return Options{
		StoreAttempts: nf.MayInt("STORE_ATTEMPTS", 3),
	}
}
