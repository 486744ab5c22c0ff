package service

import (
	"github.com/okian/fairness/internal/domain/scoring"
	"github.com/okian/fairness/internal/integrity"
	"github.com/okian/fairness/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued scoring jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProfile sets the fairness profile.
func WithProfile(p scoring.Profile) Option {
	return func(s *Service) {
		s.profile = p
	}
}

// WithModel sets the model file and the operator's pinned BLAKE3 hash.
func WithModel(path, expectedHash string) Option {
	return func(s *Service) {
		s.modelPath = path
		s.expectedHash = expectedHash
	}
}

// WithGateOptions passes options to the integrity gate.
func WithGateOptions(opts ...integrity.Option) Option {
	return func(s *Service) {
		s.gateOpts = append(s.gateOpts, opts...)
	}
}
