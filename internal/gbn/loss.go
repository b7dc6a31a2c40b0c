package gbn

import (
	"math/rand"
	"sync"
	"time"
)

// LossSimulator decides, per outbound unit, whether it is dropped. Two
// independently configured instances exist per session: one for the forward
// (packet) path and one for the reverse (ACK) path.
type LossSimulator struct {
	probability float64

	mu  sync.Mutex
	rnd func() float64
}

// NewLossSimulator creates a time-seeded simulator with drop probability p.
func NewLossSimulator(p float64) *LossSimulator {
	return NewSeededLossSimulator(p, time.Now().UnixNano())
}

// NewSeededLossSimulator creates a simulator with a fixed seed so runs are
// reproducible.
func NewSeededLossSimulator(p float64, seed int64) *LossSimulator {
	rnd := rand.New(rand.NewSource(seed))
	return &LossSimulator{probability: p, rnd: rnd.Float64}
}

// NewScriptedLossSimulator drops exactly the units marked true, in call order,
// and nothing after the script is exhausted. Deterministic tests and demo
// scenarios use it to reproduce documented outcomes.
func NewScriptedLossSimulator(drops ...bool) *LossSimulator {
	i := 0
	s := &LossSimulator{probability: 1}
	s.rnd = func() float64 {
		if i >= len(drops) {
			return 2 // beyond any probability, never drops
		}
		drop := drops[i]
		i++
		if drop {
			return 0
		}
		return 2
	}
	return s
}

// ShouldDrop returns true with the configured probability.
func (s *LossSimulator) ShouldDrop() bool {
	if s == nil || s.probability <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd() < s.probability
}

// Probability returns the configured drop probability.
func (s *LossSimulator) Probability() float64 {
	if s == nil {
		return 0
	}
	return s.probability
}
