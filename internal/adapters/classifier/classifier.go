// Package classifier maps raw weather attributes to a context emotion.
package classifier

import "strings"

// DefaultConfidence is attached to every rule-based label.
const DefaultConfidence = 0.7

// Weather conditions understood by Rules.
const (
	Sunny  = "sunny"
	Rainy  = "rainy"
	Stormy = "stormy"
	Cloudy = "cloudy"
)

// Rules is a fixed rule table; the first matching rule wins.
type Rules struct {
	confidence float64
}

// Option configures Rules.
type Option func(*Rules)

// WithConfidence sets the confidence reported with every label.
func WithConfidence(c float64) Option {
	return func(r *Rules) {
		if c >= 0 && c <= 1 {
			r.confidence = c
		}
	}
}

// New creates the rule classifier.
func New(opts ...Option) *Rules {
	r := &Rules{confidence: DefaultConfidence}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify returns the context emotion for a weather reading.
// Condition matching ignores case and surrounding space.
func (r *Rules) Classify(temperature, humidity float64, condition string) (string, float64) {
	switch c := strings.ToLower(strings.TrimSpace(condition)); {
	case c == Sunny && temperature > 25:
		return "energetic", r.confidence
	case c == Rainy:
		return "calm", r.confidence
	case c == Stormy:
		return "anxious", r.confidence
	case humidity > 80:
		return "melancholic", r.confidence
	default:
		return "neutral", r.confidence
	}
}
