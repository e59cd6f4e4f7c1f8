package learner

import "time"

// Option applies a configuration option to the Learner.
type Option func(*Learner)

// WithHalfLife sets the recency half-life. Non-positive values are ignored.
func WithHalfLife(d time.Duration) Option {
	return func(l *Learner) {
		if d > 0 {
			l.halfLife = d
		}
	}
}

// WithRates sets the genre-weight learning rates for like and skip.
func WithRates(like, skip float64) Option {
	return func(l *Learner) {
		l.likeRate = like
		l.skipRate = skip
	}
}

// WithEmotionRates sets the emotion-bias learning rates for like and skip.
func WithEmotionRates(like, skip float64) Option {
	return func(l *Learner) {
		l.emotionLikeRate = like
		l.emotionSkipRate = skip
	}
}

// WithCooldown sets how long a skipped genre stays suppressed.
func WithCooldown(d time.Duration) Option {
	return func(l *Learner) {
		if d >= 0 {
			l.cooldown = d
		}
	}
}

// WithClock overrides the time source used as "now".
func WithClock(now func() time.Time) Option {
	return func(l *Learner) {
		if now != nil {
			l.now = now
		}
	}
}
