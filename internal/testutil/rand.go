package testutil

import "math/rand/v2"

// NewSeededRand returns a deterministic generator for a seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// IndexSource always returns the same index, clamped to the range asked for.
// Use it to force "pick the first" or "pick the last" in tests.
type IndexSource int

// IntN implements pick.Source.
func (s IndexSource) IntN(n int) int {
	i := int(s)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
