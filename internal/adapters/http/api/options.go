package api

import (
	"time"

	"github.com/okian/vibe/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithRateLimit caps feedback writes to requests per window per client IP.
// A non-positive request count disables the limit.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimitRequests = requests
		if window > 0 {
			s.rateLimitWindow = window
		}
	}
}

// WithClock sets the clock used when a request omits its timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
