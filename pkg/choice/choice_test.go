package choice

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPick(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	options := []string{"a", "b", "c"}

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[Pick(r, options)] = true
	}

	assert.Len(t, seen, 3, "all options should be reachable")
}

func TestChance(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	assert.False(t, Chance(r, 0))
	assert.False(t, Chance(r, -0.5))
	assert.True(t, Chance(r, 1))
	assert.True(t, Chance(r, 1.5))

	hits := 0
	for i := 0; i < 10000; i++ {
		if Chance(r, 0.3) {
			hits++
		}
	}
	// Loose statistical bound; the point is the probability is honored at all.
	assert.Greater(t, hits, 2000)
	assert.Less(t, hits, 4000)
}

func TestIntBetween(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		v := IntBetween(r, 2, 4)
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 4)
	}

	assert.Equal(t, 7, IntBetween(r, 7, 7))
	assert.Equal(t, 7, IntBetween(r, 7, 3))
}

func TestDurationBetweenStaysWithinWindow(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	min, max := 5*time.Second, 30*time.Second

	for i := 0; i < 1000; i++ {
		d := DurationBetween(r, min, max)
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}

	assert.Equal(t, min, DurationBetween(r, min, min))
}

func TestWeighted(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	counts := make(map[string]int)
	for i := 0; i < 10000; i++ {
		counts[Weighted(r, []string{"common", "rare", "never"}, []float64{0.9, 0.1, 0})]++
	}

	assert.Greater(t, counts["common"], counts["rare"])
	assert.Greater(t, counts["rare"], 0)
	assert.Zero(t, counts["never"])
}

func TestWeightedPanics(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	assert.Panics(t, func() { Weighted(r, []string{"a"}, []float64{0.5, 0.5}) })
	assert.Panics(t, func() { Weighted(r, []string{"a", "b"}, []float64{0, 0}) })
}
