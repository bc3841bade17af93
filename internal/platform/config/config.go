// Package config reads application settings from environment
// variables through namespaced views.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"shipledger/internal/platform/logger"
)

// Conf is a prefixed window onto the environment. New("") sees every
// var; Prefix("CORE_WEBHOOK_") scopes lookups to one module.
type Conf struct{ prefix string }

// New creates a root Conf with no prefix
func New() Conf { return Conf{} }

// Prefix returns a child view that prepends p to every lookup, so
// prefixes nest: New().Prefix("SERVICE_").Prefix("PGSQL_").
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// lookup trims the raw value; empty and unset are treated the same
func (c Conf) lookup(key string) string {
	return strings.TrimSpace(os.Getenv(c.key(key)))
}

// MustString panics when the key is missing or blank. Used for values
// the process cannot run without, like webhook secrets.
func (c Conf) MustString(key string) string {
	v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MayString returns the value, or def when missing
func (c Conf) MayString(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// MayInt parses an int; unparseable values log a warning and fall back
func (c Conf) MayInt(key string, def int) int {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Int("default", def).Msg("invalid int; using default")
		return def
	}
	return v
}

// MayBool parses a bool; unparseable values log a warning and fall back
func (c Conf) MayBool(key string, def bool) bool {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Bool("default", def).Msg("invalid bool; using default")
		return def
	}
	return v
}

// MayDuration parses a Go duration string like "750ms" or "2m"
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
		return def
	}
	return d
}

// MayCSV splits a comma separated value, dropping blank entries. An
// env var of only commas or whitespace falls back to def.
func (c Conf) MayCSV(key string, def []string) []string {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
