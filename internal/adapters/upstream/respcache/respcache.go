// Package respcache caches raw upstream responses on disk
// Entries are JSON files named <key>_<timestamp>.json under one dir;
// the newest file for a key wins and unreadable entries are skipped.
// Writes go through a tmp file plus rename so readers never observe a
// partial entry
package respcache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shipledger/internal/platform/logger"
)

const stampLayout = "20060102T150405.000000000"

// Cache is a directory of timestamped response files
type Cache struct {
	dir string
	log logger.Logger
	now func() time.Time
}

// New builds a Cache rooted at dir, creating it when missing
func New(dir string) *Cache {
	_ = os.MkdirAll(dir, 0o755)
	return &Cache{
		dir: dir,
		log: *logger.Named("respcache"),
		now: time.Now,
	}
}

// Key builds a deterministic fingerprint from query parts
// Parts are joined with underscores after squashing separator runs so
// the same query always lands on the same key
func Key(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = sanitize(p)
		if p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "_")
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// Get returns the newest readable entry for key, ok=false on miss
func (c *Cache) Get(key string) ([]byte, bool) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, false
	}

	prefix := key + "_"
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ".json") {
			continue
		}
		// the remainder must be a bare timestamp or the entry belongs
		// to a longer key that shares this prefix
		stamp := strings.TrimSuffix(strings.TrimPrefix(n, prefix), ".json")
		if _, err := time.Parse(stampLayout, stamp); err != nil {
			continue
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil, false
	}

	// timestamps sort lexicographically, newest last
	sort.Strings(names)
	for i := len(names) - 1; i >= 0; i-- {
		b, err := os.ReadFile(filepath.Join(c.dir, names[i]))
		if err != nil {
			c.log.Warn().Err(err).Str("entry", names[i]).Msg("skipping unreadable cache entry")
			continue
		}
		return b, true
	}
	return nil, false
}

// Put writes data as the newest entry for key
func (c *Cache) Put(key string, data []byte) error {
	name := key + "_" + c.now().UTC().Format(stampLayout) + ".json"
	path := filepath.Join(c.dir, name)
	tmp := path + ".part"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
