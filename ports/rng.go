package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic
// operations. Validation paths that sample rows draw from a named stream so
// repeated runs check the same rows.
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(name string, seed int64) *rand.Rand
}
