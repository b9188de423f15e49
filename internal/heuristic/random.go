// internal/heuristic/random.go
package heuristic

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

// Rand is the randomness the engine consumes: shuffling sentence pools and
// options, and drawing filler option numbers. *rand.Rand from math/rand/v2
// satisfies it, so tests can pass a seeded source.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type processRand struct{}

func (processRand) IntN(n int) int                     { return rand.IntN(n) }
func (processRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// ProcessRand returns the process-wide source. Safe for concurrent use.
func ProcessRand() Rand { return processRand{} }

// NewSeededRand returns a deterministic source, used by tests and by callers
// that want reproducible quizzes.
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func orProcess(rng Rand) Rand {
	if rng == nil {
		return processRand{}
	}
	return rng
}

// fillerOption draws "option<N>" with N in [1, 99].
func fillerOption(rng Rand) string {
	return "option" + strconv.Itoa(1+rng.IntN(99))
}

// uniqueFiller keeps drawing until the token is unused (case-insensitive).
func uniqueFiller(rng Rand, taken func(lower string) bool) string {
	for {
		cand := fillerOption(rng)
		if !taken(strings.ToLower(cand)) {
			return cand
		}
	}
}
