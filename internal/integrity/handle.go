package integrity

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handle holds the process's verified model. Readers never block; a reload
// re-runs the whole gate and publishes the new artifact in one atomic store.
type Handle struct {
	path    string
	opts    []Option
	mu      sync.Mutex // serializes reloads
	current atomic.Pointer[Artifact]
}

// NewHandle loads path through the gate and fails closed.
func NewHandle(ctx context.Context, path, expectedHash string, opts ...Option) (*Handle, error) {
	art, err := Load(ctx, path, expectedHash, opts...)
	if err != nil {
		return nil, err
	}
	h := &Handle{path: path, opts: opts}
	h.current.Store(art)
	return h, nil
}

// Current returns the active artifact.
func (h *Handle) Current() *Artifact {
	return h.current.Load()
}

// Path returns the model file the handle reloads from.
func (h *Handle) Path() string {
	return h.path
}

// Reload verifies the file again against expectedHash. On any failure the
// previous artifact stays active and the error is returned.
func (h *Handle) Reload(ctx context.Context, expectedHash string) (*Artifact, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	art, err := Load(ctx, h.path, expectedHash, h.opts...)
	if err != nil {
		return nil, err
	}
	h.current.Store(art)
	return art, nil
}
