// Package learner updates a user's learned preferences from like/skip feedback.
package learner

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/vibe/internal/domain/model"
)

// Default learning constants.
const (
	DefaultHalfLife        = 7 * 24 * time.Hour
	DefaultLikeRate        = 0.12
	DefaultSkipRate        = 0.10
	DefaultEmotionLikeRate = 0.04
	DefaultEmotionSkipRate = 0.02
	DefaultCooldown        = 2 * time.Hour
)

// Learner applies feedback to profiles. It holds no per-user state.
type Learner struct {
	halfLife        time.Duration
	likeRate        float64
	skipRate        float64
	emotionLikeRate float64
	emotionSkipRate float64
	cooldown        time.Duration
	now             func() time.Time
}

// Update describes what Apply changed.
type Update struct {
	Weight      float64 // recency weight used
	GenreWeight float64
	EmotionBias float64
	// Clamped is set when either touched key hit its bound.
	GenreClamped   bool
	EmotionClamped bool
}

// New creates a Learner with default rates and the wall clock.
func New(opts ...Option) *Learner {
	l := &Learner{
		halfLife:        DefaultHalfLife,
		likeRate:        DefaultLikeRate,
		skipRate:        DefaultSkipRate,
		emotionLikeRate: DefaultEmotionLikeRate,
		emotionSkipRate: DefaultEmotionSkipRate,
		cooldown:        DefaultCooldown,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecencyWeight returns exp(-ln2/halfLife * max(0, now-ts)).
// It is 1 at ts == now and decreases monotonically as ts ages.
func (l *Learner) RecencyWeight(ts, now int64) float64 {
	dt := now - ts
	if dt < 0 {
		dt = 0
	}
	return math.Exp(-math.Ln2 / l.halfLife.Seconds() * float64(dt))
}

// Apply mutates p with fb. Only the touched genre and emotion are clamped.
// The history entry is appended even if clamping absorbed the update.
// The caller must hold the user's lock.
func (l *Learner) Apply(p *model.Profile, fb model.Feedback) (Update, error) {
	if !fb.Outcome.Valid() {
		return Update{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, fb.Outcome)
	}

	now := l.now().Unix()
	w := l.RecencyWeight(fb.Timestamp, now)
	p.History = append(p.History, model.HistoryEntry{Timestamp: fb.Timestamp, Genre: fb.Genre, Outcome: fb.Outcome})

	switch fb.Outcome {
	case model.OutcomeLike:
		p.GenreWeights[fb.Genre] += l.likeRate * w
		p.EmotionBias[fb.Emotion] += l.emotionLikeRate * w
		delete(p.CooldownGenres, fb.Genre)
	case model.OutcomeSkip:
		p.GenreWeights[fb.Genre] -= l.skipRate * w
		p.EmotionBias[fb.Emotion] -= l.emotionSkipRate * w
		p.CooldownGenres[fb.Genre] = now + int64(l.cooldown/time.Second)
	}

	u := Update{Weight: w}
	u.GenreWeight, u.GenreClamped = clamp(p.GenreWeights[fb.Genre], model.GenreWeightMin, model.GenreWeightMax)
	u.EmotionBias, u.EmotionClamped = clamp(p.EmotionBias[fb.Emotion], model.EmotionBiasMin, model.EmotionBiasMax)
	p.GenreWeights[fb.Genre] = u.GenreWeight
	p.EmotionBias[fb.Emotion] = u.EmotionBias
	return u, nil
}

func clamp(v, lo, hi float64) (float64, bool) {
	switch {
	case v < lo:
		return lo, true
	case v > hi:
		return hi, true
	}
	return v, false
}
