package gbn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLossSimulator_ZeroProbabilityNeverDrops(t *testing.T) {
	s := NewLossSimulator(0)
	for i := 0; i < 1000; i++ {
		assert.False(t, s.ShouldDrop())
	}
}

func TestLossSimulator_NilNeverDrops(t *testing.T) {
	var s *LossSimulator
	assert.False(t, s.ShouldDrop())
	assert.Equal(t, 0.0, s.Probability())
}

func TestLossSimulator_FullProbabilityAlwaysDrops(t *testing.T) {
	s := NewSeededLossSimulator(1, 7)
	for i := 0; i < 1000; i++ {
		assert.True(t, s.ShouldDrop())
	}
}

func TestLossSimulator_SeededRunsAreReproducible(t *testing.T) {
	a := NewSeededLossSimulator(0.5, 42)
	b := NewSeededLossSimulator(0.5, 42)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.ShouldDrop(), b.ShouldDrop(), "decision %d diverged", i)
	}
}

func TestLossSimulator_DropFraction(t *testing.T) {
	s := NewSeededLossSimulator(0.3, 1)

	drops := 0
	const n = 10000
	for i := 0; i < n; i++ {
		if s.ShouldDrop() {
			drops++
		}
	}

	fraction := float64(drops) / n
	assert.InDelta(t, 0.3, fraction, 0.05)
}

func TestScriptedLossSimulator(t *testing.T) {
	s := NewScriptedLossSimulator(false, true, true, false)

	assert.False(t, s.ShouldDrop())
	assert.True(t, s.ShouldDrop())
	assert.True(t, s.ShouldDrop())
	assert.False(t, s.ShouldDrop())

	// Exhausted script never drops again.
	for i := 0; i < 10; i++ {
		assert.False(t, s.ShouldDrop())
	}
}
