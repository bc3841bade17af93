// Package artifacts provides artifact sink implementations
package artifacts

import (
	"context"
	"os"
	"path/filepath"

	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
)

// FS writes artifacts to a directory on the local filesystem
type FS struct {
	dir string
}

// NewFS constructs a filesystem sink rooted at dir
func NewFS(dir string) *FS {
	return &FS{dir: dir}
}

// Write implements the artifact sink contract
// Writes land under a temp name first so a crash never leaves a partial
// artifact visible
func (f *FS) Write(ctx context.Context, name string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "create artifact dir")
	}

	final := filepath.Join(f.dir, name)
	tmp := final + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "write artifact")
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "publish artifact")
	}

	logger.C(ctx).Debug().Str("artifact", final).Int("bytes", len(data)).Msg("artifact written")
	return nil
}
