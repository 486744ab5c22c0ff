package harness

import (
	"runtime"
	"time"

	"github.com/okian/fairness/pkg/logger"
)

// Option configures a Harness.
type Option func(*Harness)

// WithCorpus selects the corpus version and size.
func WithCorpus(version, size int) Option {
	return func(h *Harness) {
		h.corpusVersion = version
		h.corpusSize = size
	}
}

// WithArchitecture overrides the baseline key, which defaults to GOOS-GOARCH.
func WithArchitecture(arch string) Option {
	return func(h *Harness) {
		if arch != "" {
			h.arch = arch
		}
	}
}

// WithCrossCheck scores the corpus a second time through p and requires
// byte-identical output.
func WithCrossCheck(p Pipeline) Option {
	return func(h *Harness) {
		h.crossCheck = p
	}
}

// WithLogger sets the harness logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock sets the source of report timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) {
		if now != nil {
			h.now = now
		}
	}
}

// DefaultArchitecture is the baseline key for the running binary.
func DefaultArchitecture() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}
