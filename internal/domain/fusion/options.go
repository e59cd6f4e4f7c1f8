package fusion

import "github.com/okian/vibe/pkg/logger"

// Option configures an Aligner.
type Option func(*Aligner)

// WithTolerance sets the maximum timestamp distance for a gesture/context match.
func WithTolerance(t int64) Option {
	return func(a *Aligner) {
		if t >= 0 {
			a.tolerance = t
		}
	}
}

// WithDefaultGestureConfidence sets the confidence used when a gesture event carries none.
func WithDefaultGestureConfidence(c float64) Option {
	return func(a *Aligner) { a.defaultGesture = clamp01(c) }
}

// WithDefaultContextConfidence sets the confidence used when a context event carries none.
func WithDefaultContextConfidence(c float64) Option {
	return func(a *Aligner) { a.defaultContext = clamp01(c) }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aligner) { a.log = l }
}
