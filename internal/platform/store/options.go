package store

import (
	"shipledger/internal/platform/logger"
)

// Option mutates the Store while Open assembles it
type Option func(*Store) error

// WithLogger routes backend open/trace output through log instead of
// the package default.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}
