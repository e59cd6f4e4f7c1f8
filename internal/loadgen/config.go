// Package loadgen drives a running recommender with synthetic traffic and
// fuses recorded gesture/context sequences offline.
package loadgen

import (
	"time"

	"github.com/okian/vibe/pkg/logger"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Users     int           // Distinct synthetic users
	Feedback  int           // Feedback events to submit
	Infers    int           // /infer calls to issue
	BatchSize int           // Feedback items per /feedback/batch call
	Workers   int           // Concurrent HTTP workers
	LikeRatio float64       // Share of feedback that is a like
	Seed      int64         // Generator seed; 0 picks one from the clock
	Timeout   time.Duration // HTTP request timeout
	Settle    time.Duration // Upper bound on waiting for async feedback to drain

	// Logger receives progress and the summary; nil uses the global logger.
	Logger logger.Logger
}

// Stats holds run statistics.
type Stats struct {
	FeedbackGenerated int
	FeedbackAccepted  int64
	FeedbackRejected  int64
	BatchesFailed     int64
	InfersOK          int64
	InfersFailed      int64
	Processed         int64
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// FeedbackItem is one /feedback payload.
type FeedbackItem struct {
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
	Genre     string `json:"genre"`
	Emotion   string `json:"emotion"`
	Outcome   string `json:"outcome"`
}

// InferCall is one /infer payload.
type InferCall struct {
	UserID  string       `json:"user_id"`
	Gesture GestureInput `json:"gesture"`
	Weather WeatherInput `json:"weather"`
}

// GestureInput is the gesture half of an /infer payload.
type GestureInput struct {
	Timestamp  int64   `json:"timestamp"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// WeatherInput is the weather half of an /infer payload.
type WeatherInput struct {
	Timestamp   int64   `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Condition   string  `json:"condition"`
}

type batchResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}
