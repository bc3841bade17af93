// Package raw is the bootstrap env reader. The logger configures
// itself through this package, so it must never import the logger.
package raw

import (
	"os"
	"strings"
)

// Conf is a prefixed window onto the environment, like config.Conf but
// with silent fallbacks instead of logged warnings.
type Conf struct{ prefix string }

// New returns a root Conf with no prefix
func New() Conf { return Conf{} }

// Prefix returns a child view that prepends p, e.g. "LOG_"
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// Get returns the trimmed value, or def when missing or blank
func (c Conf) Get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(c.key(key))); v != "" {
		return v
	}
	return def
}

// GetBool accepts 1/true/yes as true; anything else present is false
func (c Conf) GetBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(c.key(key))))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

// GetInt parses a non-negative integer digit by digit; any non-digit
// character falls back to def.
func (c Conf) GetInt(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(c.key(key)))
	if s == "" {
		return def
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < '0' || ch > '9' {
			return def
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
