package scoring

import "time"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPriorWeight sets the weight added to each prior genre.
func WithPriorWeight(w float64) Option {
	return func(e *Engine) { e.priorWeight = w }
}

// WithCooldownPenalty sets the amount subtracted from genres still cooling down.
func WithCooldownPenalty(p float64) Option {
	return func(e *Engine) { e.cooldownPenalty = p }
}

// WithExploreBonus sets the bonus added to the exploration pool.
func WithExploreBonus(b float64) Option {
	return func(e *Engine) { e.exploreBonus = b }
}

// WithExplorePoolSize caps the exploration pool. Zero or negative keeps the whole pool.
func WithExplorePoolSize(n int) Option {
	return func(e *Engine) { e.explorePoolSize = n }
}

// WithDefaultTopN sets the result length used when a request asks for none.
func WithDefaultTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultTopN = n
		}
	}
}

// WithLocation sets the zone used to derive the time-of-day bucket.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithRandSource injects the randomness used by the exploration step.
func WithRandSource(r RandSource) Option {
	return func(e *Engine) {
		if r != nil {
			e.rand = r
		}
	}
}
