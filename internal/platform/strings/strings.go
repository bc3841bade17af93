// Package strings holds tiny string and slice helpers used by module wiring
package strings

import std "strings"

// IfEmpty substitutes def when in has no elements. Module builders use it to
// fall back to a default middleware chain when none was supplied
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) > 0 {
		return in
	}
	return def
}

// MustString panics when s is blank after trimming. The name shows up in the
// panic so a misconfigured module is identifiable from the stack alone
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix coerces a mount path into canonical form, one leading slash and
// no trailing one, so " hooks/ " and "/hooks" both come out as "/hooks".
// A value that trims down to the bare root panics
func MustPrefix(s string) string {
	p := "/" + std.Trim(std.TrimSpace(s), " /")
	if p == "/" {
		panic("root path is required")
	}
	return p
}

// SQLNullPtr maps a nil or blank *string to nil so optional columns store
// NULL instead of an empty string
func SQLNullPtr(ps *string) any {
	if ps == nil {
		return nil
	}
	if std.TrimSpace(*ps) == "" {
		return nil
	}
	return *ps
}
