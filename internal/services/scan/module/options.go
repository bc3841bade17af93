package module

import (
	"shipledger/internal/platform/config"
)

// Options configures the scan module
type Options struct {
	WindowDays int
	UseCache   bool
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CORE_SCAN_")
	return Options{
		WindowDays: cf.MayInt("WINDOW_DAYS", 30),
		UseCache:   cf.MayBool("USE_CACHE", false),
	}
}
