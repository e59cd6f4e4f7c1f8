package service

import (
	"time"

	"github.com/okian/vibe/internal/adapters/repository"
	"github.com/okian/vibe/internal/config"
	"github.com/okian/vibe/internal/domain/scoring"
	"github.com/okian/vibe/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithBackend makes Start use backend instead of opening the configured one.
// The service takes ownership and closes it on Stop.
func WithBackend(b repository.Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithWorkerCount overrides ingest.worker_count.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize overrides ingest.queue_size.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize overrides ingest.dedupe_size.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRandSource sets the exploration random source.
func WithRandSource(r scoring.RandSource) Option {
	return func(s *Service) {
		s.rand = r
	}
}

// WithClock sets the clock used by the feedback learner.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
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
