// Package rng provides deterministic random streams for operations that
// sample data, so repeated runs make the same draws.
package rng

import (
	"hash/fnv"
	"math/rand"

	"datacheck/ports"
)

// SeededSource derives an independent generator per named operation. Two
// streams with different names never share a sequence even under the same
// seed.
type SeededSource struct{}

var _ ports.RNGPort = (*SeededSource)(nil)

func NewSeededSource() *SeededSource {
	return &SeededSource{}
}

func (s *SeededSource) SeededStream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}
