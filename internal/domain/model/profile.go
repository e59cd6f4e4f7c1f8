package model

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Learned-state bounds and defaults.
const (
	GenreWeightMin = -1.0
	GenreWeightMax = 2.0
	EmotionBiasMin = -0.6
	EmotionBiasMax = 0.8

	DefaultEpsilon = 0.08
)

// Outcome is the user's reaction to a recommended genre.
type Outcome string

const (
	OutcomeLike Outcome = "like"
	OutcomeSkip Outcome = "skip"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeLike || o == OutcomeSkip
}

// Feedback is a like/skip event for one genre under one emotion.
type Feedback struct {
	EventID   string  `json:"event_id,omitempty"`
	UserID    string  `json:"user_id"`
	Timestamp int64   `json:"timestamp"`
	Genre     string  `json:"genre"`
	Emotion   string  `json:"emotion"`
	Outcome   Outcome `json:"outcome"`
}

// HistoryEntry is one audit record; it encodes as [timestamp, genre, outcome].
type HistoryEntry struct {
	Timestamp int64
	Genre     string
	Outcome   Outcome
}

// MarshalJSON encodes the entry as a three-element array.
func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{h.Timestamp, h.Genre, string(h.Outcome)})
}

// UnmarshalJSON decodes the three-element array form.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("history entry: want 3 elements, got %d", len(raw))
	}
	var ts float64
	if err := json.Unmarshal(raw[0], &ts); err != nil {
		return fmt.Errorf("history entry timestamp: %w", err)
	}
	var genre, outcome string
	if err := json.Unmarshal(raw[1], &genre); err != nil {
		return fmt.Errorf("history entry genre: %w", err)
	}
	if err := json.Unmarshal(raw[2], &outcome); err != nil {
		return fmt.Errorf("history entry outcome: %w", err)
	}
	h.Timestamp, h.Genre, h.Outcome = int64(ts), genre, Outcome(outcome)
	return nil
}

// Profile is a user's learned preference state.
type Profile struct {
	UserID         string             `json:"user_id"`
	GenreWeights   map[string]float64 `json:"genre_weights"`
	EmotionBias    map[string]float64 `json:"emotion_bias"`
	History        []HistoryEntry     `json:"history"`
	Epsilon        float64            `json:"epsilon"`
	CooldownGenres map[string]int64   `json:"cooldown_genres"`
}

// NewProfile returns a fresh profile with default fields.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID:         userID,
		GenreWeights:   map[string]float64{},
		EmotionBias:    map[string]float64{},
		History:        []HistoryEntry{},
		Epsilon:        DefaultEpsilon,
		CooldownGenres: map[string]int64{},
	}
}

// UnmarshalJSON fills absent fields with defaults so older snapshots load.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	var body plain
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	var presence struct {
		Epsilon *float64 `json:"epsilon"`
	}
	if err := json.Unmarshal(data, &presence); err != nil {
		return err
	}
	*p = Profile(body)
	if presence.Epsilon == nil {
		p.Epsilon = DefaultEpsilon
	}
	if p.GenreWeights == nil {
		p.GenreWeights = map[string]float64{}
	}
	if p.EmotionBias == nil {
		p.EmotionBias = map[string]float64{}
	}
	if p.History == nil {
		p.History = []HistoryEntry{}
	}
	if p.CooldownGenres == nil {
		p.CooldownGenres = map[string]int64{}
	}
	return nil
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := &Profile{
		UserID:         p.UserID,
		GenreWeights:   make(map[string]float64, len(p.GenreWeights)),
		EmotionBias:    make(map[string]float64, len(p.EmotionBias)),
		History:        make([]HistoryEntry, len(p.History)),
		Epsilon:        p.Epsilon,
		CooldownGenres: make(map[string]int64, len(p.CooldownGenres)),
	}
	for k, v := range p.GenreWeights {
		c.GenreWeights[k] = v
	}
	for k, v := range p.EmotionBias {
		c.EmotionBias[k] = v
	}
	copy(c.History, p.History)
	for k, v := range p.CooldownGenres {
		c.CooldownGenres[k] = v
	}
	return c
}
