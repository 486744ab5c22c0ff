package integrity

import (
	"github.com/okian/fairness/pkg/logger"
)

// DefaultMaxBytes caps the model file size read by the gate.
const DefaultMaxBytes = 64 << 20

// Option applies a configuration option to a gate run.
type Option func(*gateOptions)

type gateOptions struct {
	maxBytes int64
	log      logger.Logger
}

// WithMaxBytes limits the size of the model file.
func WithMaxBytes(n int64) Option {
	return func(o *gateOptions) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithLogger sets the logger used for gate outcomes.
func WithLogger(l logger.Logger) Option {
	return func(o *gateOptions) {
		if l != nil {
			o.log = l
		}
	}
}

func newGateOptions(opts []Option) gateOptions {
	o := gateOptions{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("integrity")
	}
	return o
}
