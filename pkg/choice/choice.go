// Package choice centralizes the random selection used by the traffic engine.
// Every probabilistic branch in the scheduler goes through these helpers so
// each probability can be exercised independently in tests.
package choice

import (
	"math/rand"
	"time"
)

// Pick returns a uniformly chosen element of options.
// Panics if options is empty; pools are validated non-empty at startup.
func Pick[T any](r *rand.Rand, options []T) T {
	return options[r.Intn(len(options))]
}

// Chance returns true with probability p. Values of p outside [0,1] clamp
// to always-false / always-true respectively.
func Chance(r *rand.Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

// IntBetween returns a uniform integer in [min, max] inclusive.
func IntBetween(r *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// DurationBetween returns a uniform duration in [min, max] inclusive.
// The scheduler's jittered sleeps and micro-delays all come from here.
func DurationBetween(r *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Int63n(int64(max-min)+1))
}

// Weighted returns one of options selected with the given weights.
// Weights need not sum to 1; zero-weight options are never selected.
// Panics if the slices differ in length or no weight is positive.
func Weighted[T any](r *rand.Rand, options []T, weights []float64) T {
	if len(options) != len(weights) {
		panic("choice: options and weights length mismatch")
	}
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		panic("choice: no positive weight")
	}
	target := r.Float64() * total
	var cumulative float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if target < cumulative {
			return options[i]
		}
	}
	return options[len(options)-1]
}
