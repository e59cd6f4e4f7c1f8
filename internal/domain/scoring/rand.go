package scoring

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource supplies uniform floats in [0,1) for the exploration step.
// Implementations must be safe for concurrent use.
type RandSource interface {
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandSource returns a mutex-guarded math/rand source seeded with seed.
func NewRandSource(seed int64) RandSource {
	return &lockedRand{r: rand.New(rand.NewSource(seed))} //nolint:gosec // exploration, not security
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// FixedRand always returns the same value; handy for forcing an exploration branch.
type FixedRand float64

func (f FixedRand) Float64() float64 { return float64(f) }

func defaultRand() RandSource { return NewRandSource(time.Now().UnixNano()) }
