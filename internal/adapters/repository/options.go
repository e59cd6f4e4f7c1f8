package repository

import (
	"time"

	"github.com/okian/vibe/pkg/logger"
)

// Option applies a configuration option to the ProfileStore.
type Option func(*ProfileStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *ProfileStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithDefaultEpsilon sets the exploration rate given to newly created profiles.
func WithDefaultEpsilon(eps float64) Option {
	return func(s *ProfileStore) {
		if eps >= 0 && eps <= 1 {
			s.defaultEpsilon = eps
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *ProfileStore) {
		if l != nil {
			s.log = l
		}
	}
}
