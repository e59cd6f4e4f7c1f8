package loadgen

import (
	"math/rand"
	"strconv"

	"github.com/google/uuid"
)

var (
	emotions   = []string{"happy", "calm", "excited", "sad", "angry", "neutral"}
	genres     = []string{"pop", "dance", "lofi", "ambient", "jazz", "edm", "acoustic", "metal", "indie", "classical"}
	conditions = []string{"sunny", "rainy", "stormy", "cloudy"}
)

// Generator produces reproducible synthetic traffic for a seed.
type Generator struct {
	rnd   *rand.Rand
	users []string
	runID string
}

// NewGenerator creates a Generator over users synthetic user ids.
func NewGenerator(seed int64, users int) *Generator {
	if users <= 0 {
		users = 1
	}
	g := &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		users: make([]string, users),
		runID: uuid.NewString()[:8],
	}
	for i := range g.users {
		g.users[i] = "user-" + strconv.Itoa(i)
	}
	return g
}

// Users returns the synthetic user ids.
func (g *Generator) Users() []string { return g.users }

// Feedback returns n feedback items spread over the users, starting at ts
// and advancing one second per item. Event ids are unique per run.
func (g *Generator) Feedback(n int, ts int64, likeRatio float64) []FeedbackItem {
	out := make([]FeedbackItem, n)
	for i := range out {
		outcome := "skip"
		if g.rnd.Float64() < likeRatio {
			outcome = "like"
		}
		out[i] = FeedbackItem{
			EventID:   g.runID + "-" + strconv.Itoa(i),
			UserID:    g.pick(g.users),
			Timestamp: ts + int64(i),
			Genre:     g.pick(genres),
			Emotion:   g.pick(emotions),
			Outcome:   outcome,
		}
	}
	return out
}

// Infers returns n /infer payloads with the weather reading taken close to the gesture.
func (g *Generator) Infers(n int, ts int64) []InferCall {
	out := make([]InferCall, n)
	for i := range out {
		at := ts + int64(i)
		out[i] = InferCall{
			UserID: g.pick(g.users),
			Gesture: GestureInput{
				Timestamp:  at,
				Emotion:    g.pick(emotions),
				Confidence: 0.5 + g.rnd.Float64()/2,
			},
			Weather: WeatherInput{
				Timestamp:   at - int64(g.rnd.Intn(1500)),
				Temperature: -5 + g.rnd.Float64()*40,
				Humidity:    g.rnd.Float64() * 100,
				Condition:   g.pick(conditions),
			},
		}
	}
	return out
}

func (g *Generator) pick(from []string) string {
	return from[g.rnd.Intn(len(from))]
}
