package module

import (
	"shipledger/internal/platform/config"
)

// Options configures the commits module
type Options struct {
	StoreAttempts int
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CORE_COMMITS_")
	return Options{
		StoreAttempts: cf.MayInt("STORE_ATTEMPTS", 3),
	}
}
