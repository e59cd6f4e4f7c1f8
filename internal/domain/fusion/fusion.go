// Package fusion aligns gesture and context emotion streams by timestamp and
// resolves each aligned pair into a single emotion label.
package fusion

import (
	"context"
	"math"
	"sort"

	"github.com/okian/vibe/internal/domain/model"
	"github.com/okian/vibe/pkg/logger"
)

const (
	// DefaultTolerance is the match window in timestamp units.
	DefaultTolerance int64 = 1000

	DefaultGestureConfidence = 0.8
	DefaultContextConfidence = 0.7

	// agreementBoost scales both confidences when the two signals agree.
	agreementBoost = 0.6
)

// Resolution describes how a fused reading was decided.
type Resolution string

const (
	ResolutionAgreement Resolution = "agreement"
	ResolutionGesture   Resolution = "gesture"
	ResolutionContext   Resolution = "context"
	ResolutionUnmatched Resolution = "unmatched"
)

// Aligner joins two event sequences by nearest timestamp. It is stateless
// after construction and safe for concurrent use.
type Aligner struct {
	tolerance      int64
	defaultGesture float64
	defaultContext float64
	log            logger.Logger
}

// New creates an Aligner with default tolerance and confidences.
func New(opts ...Option) *Aligner {
	a := &Aligner{
		tolerance:      DefaultTolerance,
		defaultGesture: DefaultGestureConfidence,
		defaultContext: DefaultContextConfidence,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tolerance returns the configured match window.
func (a *Aligner) Tolerance() int64 { return a.tolerance }

// Fuse resolves one aligned pair. Agreement boosts confidence up to 1.0;
// disagreement keeps the more confident label, gesture winning ties.
func Fuse(gEmotion string, gConf float64, cEmotion string, cConf float64) (string, float64, Resolution) {
	if gEmotion == cEmotion {
		return gEmotion, math.Min(1.0, agreementBoost*gConf+agreementBoost*cConf), ResolutionAgreement
	}
	if gConf >= cConf {
		return gEmotion, gConf, ResolutionGesture
	}
	return cEmotion, cConf, ResolutionContext
}

// AlignAndFuse pairs every gesture event with the nearest context event
// within tolerance and fuses the pair. Output follows gesture input order.
// Equal distances resolve to the earlier context event. Inputs are not modified.
func (a *Aligner) AlignAndFuse(ctx context.Context, gestures, contexts []model.Event) []model.FusedReading {
	sorted := make([]model.Event, len(contexts))
	copy(sorted, contexts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	out := make([]model.FusedReading, 0, len(gestures))
	unmatched := 0
	for _, g := range gestures {
		r := model.FusedReading{
			Timestamp:         g.Timestamp,
			GestureEmotion:    g.Emotion,
			GestureConfidence: confidenceOr(g.Confidence, a.defaultGesture),
		}

		if i, ok := a.nearest(sorted, g.Timestamp); ok {
			c := sorted[i]
			r.Matched = true
			r.ContextEmotion = c.Emotion
			r.ContextConfidence = confidenceOr(c.Confidence, a.defaultContext)
			r.FusedEmotion, r.FusedConfidence, _ = Fuse(r.GestureEmotion, r.GestureConfidence, r.ContextEmotion, r.ContextConfidence)
		} else {
			unmatched++
			r.FusedEmotion = r.GestureEmotion
			r.FusedConfidence = r.GestureConfidence
		}
		out = append(out, r)
	}

	if a.log != nil && unmatched > 0 {
		a.log.Debug(ctx, "gesture events without context match",
			logger.Int("unmatched", unmatched),
			logger.Int("gestures", len(gestures)),
			logger.Int64("tolerance", a.tolerance))
	}
	return out
}

// ResolutionOf reports how r was decided.
func ResolutionOf(r model.FusedReading) Resolution {
	switch {
	case !r.Matched:
		return ResolutionUnmatched
	case r.GestureEmotion == r.ContextEmotion:
		return ResolutionAgreement
	case r.FusedEmotion == r.GestureEmotion:
		return ResolutionGesture
	default:
		return ResolutionContext
	}
}

// nearest returns the index of the context event closest to ts within tolerance.
func (a *Aligner) nearest(sorted []model.Event, ts int64) (int, bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	// first index with Timestamp >= ts
	hi := sort.Search(len(sorted), func(i int) bool { return sorted[i].Timestamp >= ts })

	best, bestDist := -1, int64(0)
	if hi > 0 {
		// last event at or before ts; walk back over equal timestamps to keep the earliest
		lo := hi - 1
		for lo > 0 && sorted[lo-1].Timestamp == sorted[lo].Timestamp {
			lo--
		}
		best, bestDist = lo, ts-sorted[lo].Timestamp
	}
	if hi < len(sorted) {
		if d := sorted[hi].Timestamp - ts; best < 0 || d < bestDist {
			best, bestDist = hi, d
		}
	}
	if best < 0 || bestDist > a.tolerance {
		return 0, false
	}
	return best, true
}

func confidenceOr(c *float64, def float64) float64 {
	if c == nil {
		return def
	}
	return *c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
