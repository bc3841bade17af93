// Package storykey extracts issue-tracker keys from commit text
// Pipeline order
// 1 Unicode NFKC normalization
// 2 Width fold fullwidth to ASCII
// 3 Uppercase so lowercase references normalize
// 4 Regex scan for project keys like APP-123
package storykey

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// keyPattern matches an uppercase project prefix, hyphen, digits
var keyPattern = regexp.MustCompile(`[A-Z][A-Z0-9]+-\d+`)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFKC,
			width.Fold, // map fullwidth forms to ASCII
		)
	},
}

// fold normalizes s ahead of the regex scan
func fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return strings.ToUpper(ns)
}

// Extract returns the issue keys referenced by a commit in first-seen order
// Sources are scanned message first, then branch, then PR or commit title;
// duplicates compare case-insensitively and later hits are dropped
func Extract(message, branch, title string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, src := range []string{message, branch, title} {
		if src == "" {
			continue
		}
		for _, k := range keyPattern.FindAllString(fold(src), -1) {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Normalize uppercases and dedups explicit story keys from a richer payload
// Keys are used as-is after folding, never re-derived from text
func Normalize(keys []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, raw := range keys {
		k := fold(strings.TrimSpace(raw))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
