// Package repository persists determinism baselines.
package repository

import "os"

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithFileMode sets the permission bits of written baselines.
func WithFileMode(mode os.FileMode) Option {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}
