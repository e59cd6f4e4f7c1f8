// Package scoring ranks genres for a user from a fused emotion, the request
// context and the user's learned profile.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/okian/vibe/internal/domain/model"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Default scoring constants.
const (
	DefaultPriorWeight     = 0.6
	DefaultCooldownPenalty = 0.25
	DefaultExploreBonus    = 0.08
	DefaultTopN            = 3
)

// Request asks for a ranked list of genres.
type Request struct {
	UserID       string
	Timestamp    int64 // epoch seconds
	FusedEmotion string
	// ContextEmotion is optional; empty skips the context boost layer.
	ContextEmotion string
	// TopN <= 0 selects the engine default.
	TopN int
}

// Recommendation is one ranked genre.
type Recommendation struct {
	Genre string  `json:"genre"`
	Score float64 `json:"score"`
}

// Result is the ranked output plus metadata about how it was produced.
type Result struct {
	Recommendations []Recommendation
	TimeBucket      TimeBucket
	Epsilon         float64
	// Explored is true when the exploration bonus was applied.
	Explored bool
	// FallbackEmotion is true when the fused emotion had no prior table entry.
	FallbackEmotion bool
	// Penalized counts genres still under cooldown.
	Penalized int
	// PrunedCooldowns counts expired cooldown entries removed from the profile.
	PrunedCooldowns int
}

// Engine computes layered genre scores. It holds no per-user state and is
// safe for concurrent use as long as each profile is accessed by one caller.
type Engine struct {
	tables *Tables

	priorWeight     float64
	cooldownPenalty float64
	exploreBonus    float64
	explorePoolSize int
	defaultTopN     int
	loc             *time.Location
	rand            RandSource
}

// NewEngine creates an Engine over tables.
func NewEngine(tables *Tables, opts ...Option) *Engine {
	e := &Engine{
		tables:          tables,
		priorWeight:     DefaultPriorWeight,
		cooldownPenalty: DefaultCooldownPenalty,
		exploreBonus:    DefaultExploreBonus,
		defaultTopN:     DefaultTopN,
		loc:             time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rand == nil {
		e.rand = defaultRand()
	}
	return e
}

// Recommend scores genres for req against p. Layers are applied additively in
// a fixed order: prior, context and time boosts, emotion bias then learned
// genre weights, cooldown penalty, exploration.
//
// Expired cooldowns are removed from p, so the caller must hold the user's lock.
func (e *Engine) Recommend(p *model.Profile, req Request) Result {
	res := Result{
		TimeBucket: TimeBucketFor(req.Timestamp, e.loc),
		Epsilon:    p.Epsilon,
	}
	scores := orderedmap.New[string, float64]()
	add := func(genre string, v float64) {
		cur, _ := scores.Get(genre)
		scores.Set(genre, cur+v)
	}

	prior, fallback := e.tables.genresFor(req.FusedEmotion)
	res.FallbackEmotion = fallback
	for _, g := range prior {
		add(g, e.priorWeight)
	}

	if req.ContextEmotion != "" {
		for _, b := range e.tables.ContextBoosts[req.ContextEmotion] {
			add(b.Genre, b.Weight)
		}
	}
	for _, b := range e.tables.TimeBoosts[res.TimeBucket] {
		add(b.Genre, b.Weight)
	}

	if bias := p.EmotionBias[req.FusedEmotion]; bias != 0 {
		for pair := scores.Oldest(); pair != nil; pair = pair.Next() {
			pair.Value += bias
		}
	}
	for _, g := range sortedKeys(p.GenreWeights) {
		add(g, p.GenreWeights[g])
	}

	for _, g := range sortedKeys(p.CooldownGenres) {
		if p.CooldownGenres[g] > req.Timestamp {
			add(g, -e.cooldownPenalty)
			res.Penalized++
			continue
		}
		delete(p.CooldownGenres, g)
		res.PrunedCooldowns++
	}

	if p.Epsilon > 0 && e.rand.Float64() < p.Epsilon {
		res.Explored = true
		for _, g := range e.explorePool(prior) {
			add(g, e.exploreBonus)
		}
	}

	res.Recommendations = rank(scores, e.topN(req.TopN))
	return res
}

// explorePool unions the prior genres with the diversity set, first-seen order.
func (e *Engine) explorePool(prior []string) []string {
	size := len(prior) + len(e.tables.DiversityGenres)
	seen := make(map[string]struct{}, size)
	pool := make([]string, 0, size)
	for _, list := range [][]string{prior, e.tables.DiversityGenres} {
		for _, g := range list {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			pool = append(pool, g)
		}
	}
	if e.explorePoolSize > 0 && len(pool) > e.explorePoolSize {
		pool = pool[:e.explorePoolSize]
	}
	return pool
}

func (e *Engine) topN(n int) int {
	if n <= 0 {
		return e.defaultTopN
	}
	return n
}

// rank sorts by score descending, keeping insertion order on ties.
func rank(scores *orderedmap.OrderedMap[string, float64], n int) []Recommendation {
	out := make([]Recommendation, 0, scores.Len())
	for pair := scores.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Recommendation{Genre: pair.Key, Score: pair.Value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Score = round3(out[i].Score)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
