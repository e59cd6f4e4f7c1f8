package scoring

import "time"

// TimeBucket is the coarse time-of-day derived from a request timestamp.
type TimeBucket string

const (
	Morning   TimeBucket = "morning"
	Afternoon TimeBucket = "afternoon"
	Evening   TimeBucket = "evening"
	Night     TimeBucket = "night"
)

// TimeBucketFor maps the local hour of ts (epoch seconds) in loc to a bucket:
// [5,12) morning, [12,17) afternoon, [17,22) evening, otherwise night.
func TimeBucketFor(ts int64, loc *time.Location) TimeBucket {
	if loc == nil {
		loc = time.Local
	}
	switch h := time.Unix(ts, 0).In(loc).Hour(); {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 22:
		return Evening
	default:
		return Night
	}
}

// Boost is an additive nudge for one genre.
type Boost struct {
	Genre  string
	Weight float64
}

// Tables holds the static lookup data the engine layers scores from.
// A Tables value is built once at startup and must not be modified afterwards;
// the engine shares it across goroutines without locking.
type Tables struct {
	// EmotionGenres lists the prior genres for each fused emotion.
	EmotionGenres map[string][]string
	// FallbackGenres is used when the fused emotion has no entry.
	FallbackGenres []string
	// ContextBoosts is keyed by the context emotion.
	ContextBoosts map[string][]Boost
	TimeBoosts    map[TimeBucket][]Boost
	// DiversityGenres are always part of the exploration pool.
	DiversityGenres []string
}

// genresFor returns the prior genre list for emotion and whether it fell back.
func (t *Tables) genresFor(emotion string) ([]string, bool) {
	if g, ok := t.EmotionGenres[emotion]; ok {
		return g, false
	}
	return t.FallbackGenres, true
}
