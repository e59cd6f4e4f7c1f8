// Package model contains domain models passed between layers.
package model

// Event is one gesture or context emotion reading.
type Event struct {
	Timestamp int64  `json:"timestamp" validate:"gte=0"` // epoch seconds
	Emotion   string `json:"emotion" validate:"required"`
	// Confidence is nil when the producer did not report one; an explicit
	// zero is a real reading and is never replaced by a default.
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
}

// FusedReading is one aligned gesture/context pair resolved into a single label.
// Context fields are empty when no context event fell inside the tolerance.
type FusedReading struct {
	Timestamp         int64   `json:"timestamp"`
	GestureEmotion    string  `json:"gesture_emotion"`
	GestureConfidence float64 `json:"gesture_confidence"`
	ContextEmotion    string  `json:"context_emotion,omitempty"`
	ContextConfidence float64 `json:"context_confidence,omitempty"`
	Matched           bool    `json:"matched"`
	FusedEmotion      string  `json:"fused_emotion"`
	FusedConfidence   float64 `json:"fused_confidence"`
}

// Conf returns a pointer to v, for building events with an explicit confidence.
func Conf(v float64) *float64 { return &v }
