package check

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// RandomSource is the randomness a check consumes. *rand.Rand satisfies it.
// Implementations need not be safe for concurrent use.
type RandomSource interface {
	IntN(n int) int   // [0, n)
	Float64() float64 // [0, 1)
}

// cryptoSource feeds math/rand/v2 from crypto/rand.
type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to the runtime generator
		return rand.Uint64()
	}
	return binary.BigEndian.Uint64(buf[:])
}

// DefaultRNG returns a non-reproducible source backed by crypto/rand.
func DefaultRNG() RandomSource { return rand.New(cryptoSource{}) }

// NewSeededRNG returns a reproducible source (e.g. tests, Monte Carlo).
func NewSeededRNG(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, 0))
}

// rollDie returns a uniform face in [1, sides].
func rollDie(rng RandomSource, sides uint32) uint32 {
	return uint32(rng.IntN(int(sides))) + 1
}
