// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults; Load layers file and env on top.
// - Scoring tables are configuration data, loaded once and passed by reference.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	Store      StoreConfig      `koanf:"store"`
	Fusion     FusionConfig     `koanf:"fusion"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Learner    LearnerConfig    `koanf:"learner"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Ingest     IngestConfig     `koanf:"ingest"`
	HTTP       HTTPConfig       `koanf:"http"`

	// Catalog maps a genre to the content offered for it.
	Catalog map[string][]Track `koanf:"catalog"`
}

// StoreConfig selects the preference store backend.
type StoreConfig struct {
	// Backend is one of badger, sqlite, file, memory.
	Backend string `koanf:"backend"`
	// Path is the badger directory, sqlite database or JSON snapshot file.
	// Empty selects a backend-specific default.
	Path string `koanf:"path"`
}

// FusionConfig tunes the temporal aligner.
type FusionConfig struct {
	// Tolerance is the maximum timestamp distance for a gesture/context match.
	Tolerance                int64   `koanf:"tolerance"`
	DefaultGestureConfidence float64 `koanf:"default_gesture_confidence"`
	DefaultContextConfidence float64 `koanf:"default_context_confidence"`
}

// Boost is one genre nudge in a context or time-of-day table.
type Boost struct {
	Genre  string  `koanf:"genre"`
	Weight float64 `koanf:"weight"`
}

// ScoringConfig carries the scoring constants and lookup tables.
type ScoringConfig struct {
	PriorWeight     float64 `koanf:"prior_weight"`
	CooldownPenalty float64 `koanf:"cooldown_penalty"`
	ExploreBonus    float64 `koanf:"explore_bonus"`
	// ExplorePoolSize caps the exploration candidate pool; 0 keeps the whole pool.
	ExplorePoolSize int `koanf:"explore_pool_size"`
	DefaultTopN     int `koanf:"default_top_n"`
	// Timezone names the location used to derive the time-of-day bucket.
	Timezone string `koanf:"timezone"`

	EmotionGenres   map[string][]string `koanf:"emotion_genres"`
	FallbackGenres  []string            `koanf:"fallback_genres"`
	ContextBoosts   map[string][]Boost  `koanf:"context_boosts"`
	TimeBoosts      map[string][]Boost  `koanf:"time_boosts"`
	DiversityGenres []string            `koanf:"diversity_genres"`
}

// LearnerConfig carries the feedback learning rates.
type LearnerConfig struct {
	HalfLife        time.Duration `koanf:"half_life"`
	LikeRate        float64       `koanf:"like_rate"`
	SkipRate        float64       `koanf:"skip_rate"`
	EmotionLikeRate float64       `koanf:"emotion_like_rate"`
	EmotionSkipRate float64       `koanf:"emotion_skip_rate"`
	Cooldown        time.Duration `koanf:"cooldown"`
	DefaultEpsilon  float64       `koanf:"default_epsilon"`
}

// ClassifierConfig tunes the rule-based weather classifier.
type ClassifierConfig struct {
	Confidence float64 `koanf:"confidence"`
}

// IngestConfig sizes the async feedback pipeline.
type IngestConfig struct {
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`
	DedupeSize  int `koanf:"dedupe_size"`
}

// HTTPConfig tunes the serving layer.
type HTTPConfig struct {
	// RateLimitRequests per RateLimitWindow per client IP on write endpoints; 0 disables.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// Track is one catalog entry.
type Track struct {
	Title string `koanf:"title" json:"title"`
	URL   string `koanf:"url" json:"url"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Store: StoreConfig{
			Backend: "badger",
		},
		Fusion: FusionConfig{
			Tolerance:                1000,
			DefaultGestureConfidence: 0.8,
			DefaultContextConfidence: 0.7,
		},
		Scoring: ScoringConfig{
			PriorWeight:     0.6,
			CooldownPenalty: 0.25,
			ExploreBonus:    0.08,
			DefaultTopN:     3,
			Timezone:        "Local",
			EmotionGenres: map[string][]string{
				"happy":       {"pop", "dance", "indie-pop"},
				"calm":        {"lofi", "ambient", "jazz"},
				"excited":     {"edm", "trap", "alt-rock"},
				"sad":         {"sad-pop", "acoustic", "lofi"},
				"angry":       {"metal", "hard-rock", "hip-hop"},
				"neutral":     {"chillhop", "indie", "classical"},
				"energetic":   {"edm", "pop", "future-bass"},
				"melancholic": {"indie-folk", "acoustic", "ambient"},
				"anxious":     {"piano", "ambient", "lofi"},
			},
			FallbackGenres: []string{"indie"},
			// Keyed by the labels the weather classifier emits.
			ContextBoosts: map[string][]Boost{
				"energetic":   {{"pop", 0.15}, {"edm", 0.12}, {"indie-pop", 0.1}},
				"calm":        {{"lofi", 0.18}, {"ambient", 0.15}, {"jazz", 0.12}},
				"anxious":     {{"ambient", 0.2}, {"piano", 0.15}, {"lofi", 0.1}},
				"melancholic": {{"indie", 0.12}, {"chillhop", 0.1}},
				"neutral":     {{"indie", 0.12}, {"chillhop", 0.1}},
			},
			TimeBoosts: map[string][]Boost{
				"morning":   {{"indie", 0.1}, {"classical", 0.12}, {"chillhop", 0.08}},
				"afternoon": {{"pop", 0.08}, {"indie-pop", 0.06}},
				"evening":   {{"lofi", 0.12}, {"jazz", 0.1}, {"ambient", 0.08}},
				"night":     {{"ambient", 0.14}, {"piano", 0.12}, {"lofi", 0.1}},
			},
			DiversityGenres: []string{"chillhop", "indie", "acoustic", "ambient", "pop", "lofi"},
		},
		Learner: LearnerConfig{
			HalfLife:        7 * 24 * time.Hour,
			LikeRate:        0.12,
			SkipRate:        0.10,
			EmotionLikeRate: 0.04,
			EmotionSkipRate: 0.02,
			Cooldown:        2 * time.Hour,
			DefaultEpsilon:  0.08,
		},
		Classifier: ClassifierConfig{
			Confidence: 0.7,
		},
		Ingest: IngestConfig{
			QueueSize:   10_000,
			WorkerCount: runtime.NumCPU(),
			DedupeSize:  100_000,
		},
		HTTP: HTTPConfig{
			RateLimitRequests: 0,
			RateLimitWindow:   time.Minute,
		},
		Catalog: map[string][]Track{
			"lofi": {
				{Title: "Lofi Chill Beats", URL: "https://open.spotify.com/playlist/37i9dQZF1DXdPec7aLTmlC"},
				{Title: "Late Night Lofi", URL: "https://open.spotify.com/playlist/37i9dQZF1DX6xOPeSOGone"},
			},
			"ambient": {
				{Title: "Ambient Relaxation", URL: "https://open.spotify.com/playlist/37i9dQZF1DWV0gynK7G6pD"},
				{Title: "Deep Ambient", URL: "https://open.spotify.com/playlist/37i9dQZF1DX4sWSpwq3LiO"},
			},
			"jazz": {
				{Title: "Jazz Classics", URL: "https://open.spotify.com/playlist/37i9dQZF1DXbITWG1ZJKYt"},
				{Title: "Smooth Jazz", URL: "https://open.spotify.com/playlist/37i9dQZF1DX7YCknf2jT6s"},
			},
		},
	}
}

// Location resolves Scoring.Timezone; empty and "Local" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Scoring.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Scoring.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Scoring.Timezone, err)
	}
	return loc, nil
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Fusion.Tolerance < 0:
		return fmt.Errorf("%w: fusion.tolerance must not be negative", ErrInvalidConfig)
	case !unit(c.Fusion.DefaultGestureConfidence) || !unit(c.Fusion.DefaultContextConfidence):
		return fmt.Errorf("%w: fusion default confidences must be within [0,1]", ErrInvalidConfig)
	case !unit(c.Classifier.Confidence):
		return fmt.Errorf("%w: classifier.confidence must be within [0,1]", ErrInvalidConfig)
	case !unit(c.Learner.DefaultEpsilon):
		return fmt.Errorf("%w: learner.default_epsilon must be within [0,1]", ErrInvalidConfig)
	case c.Learner.HalfLife <= 0:
		return fmt.Errorf("%w: learner.half_life must be positive", ErrInvalidConfig)
	case c.Learner.Cooldown < 0:
		return fmt.Errorf("%w: learner.cooldown must not be negative", ErrInvalidConfig)
	case len(c.Scoring.FallbackGenres) == 0:
		return fmt.Errorf("%w: scoring.fallback_genres must not be empty", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case "badger", "sqlite", "file", "memory":
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	for bucket := range c.Scoring.TimeBoosts {
		switch bucket {
		case "morning", "afternoon", "evening", "night":
		default:
			return fmt.Errorf("%w: unknown time bucket %q", ErrInvalidConfig, bucket)
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
