// Package rng provides the seeded random stream threaded through every
// component that needs randomness. Nothing in the engine draws from a global
// or time-seeded source.
package rng

import (
	"math"
	"math/rand/v2"
)

// Stream is a deterministic PCG stream. A Stream is not safe for concurrent
// use; phases that draw from it run sequentially.
type Stream struct {
	src   *rand.PCG
	draws uint64
}

// New returns the stream identified by (seed, stream).
func New(seed, stream uint64) *Stream {
	return &Stream{src: rand.NewPCG(seed, stream)}
}

// ForTurn returns the single stream used by one game-turn.
func ForTurn(seed uint64, turn int) *Stream {
	return New(seed, mix(uint64(turn)<<1|1))
}

// ForGalaxy returns the stream used to generate a game's galaxy.
func ForGalaxy(seed uint64, gameID int64) *Stream {
	return New(seed, mix(uint64(gameID)<<1))
}

// ForAction returns the stream for the n-th out-of-turn action taken during
// the given turn.
func ForAction(seed uint64, turn int, n int64) *Stream {
	return New(mix(seed^uint64(n)), mix(uint64(turn)<<1|1)^0x9e3779b97f4a7c15)
}

// splitmix64 finalizer
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Uint64 returns the next raw value.
func (s *Stream) Uint64() uint64 {
	s.draws++
	return s.src.Uint64()
}

// Float64 returns a value in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (s *Stream) IntN(n int) int {
	if n <= 0 {
		panic("rng: IntN called with non-positive n")
	}
	bound := uint64(n)
	limit := math.MaxUint64 - math.MaxUint64%bound
	for {
		v := s.Uint64()
		if v < limit {
			return int(v % bound)
		}
	}
}

// Range returns a value in [lo, hi).
func (s *Stream) Range(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + (hi-lo)*s.Float64()
}

// Chance reports true with probability p.
func (s *Stream) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float64() < p
}

// Pick returns an index chosen with probability proportional to its weight,
// or -1 when no weight is positive.
func (s *Stream) Pick(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := s.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if target < w {
			return i
		}
		target -= w
	}
	return last
}

// Shuffle permutes n elements with Fisher-Yates.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, s.IntN(i+1))
	}
}

// Draws reports how many raw values have been consumed.
func (s *Stream) Draws() uint64 {
	return s.draws
}
