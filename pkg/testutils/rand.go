// Package testutils holds the components, random sources and generators shared by the engine's
// tests.
package testutils

import (
	"math/rand/v2"
	"os"
	"strconv"
	"testing"
	"time"
)

// Seed seeds every generator returned by NewRand. Set TEST_SEED to replay a failing run.
var Seed = seedFromEnv() //nolint:gochecknoglobals // shared by every test of the process

func seedFromEnv() uint64 {
	if seed, err := strconv.ParseUint(os.Getenv("TEST_SEED"), 0, 64); err == nil {
		return seed
	}
	return uint64(time.Now().UnixNano()) //nolint:gosec // nanoseconds are positive
}

// NewRand returns a generator seeded from Seed and logs the seed with the test output.
func NewRand(t *testing.T) *rand.Rand {
	t.Helper()
	t.Logf("replay with TEST_SEED=%#x", Seed)
	return rand.New(rand.NewPCG(Seed, Seed)) //nolint:gosec // tests need reproducible, not secure, numbers
}

// RandMapKey returns a uniformly chosen key of a non-empty map.
func RandMapKey[K comparable, V any](r *rand.Rand, m map[K]V) K {
	n := r.IntN(len(m))
	for k := range m {
		if n == 0 {
			return k
		}
		n--
	}
	panic("map changed while picking a key")
}

// WeightedOp is an operation type whose value doubles as its relative frequency.
type WeightedOp interface {
	~uint8 | ~uint16 | ~uint32 | ~int
}

// RandWeightedOp picks one of ops with probability proportional to its value.
func RandWeightedOp[T WeightedOp](r *rand.Rand, ops []T) T {
	total := 0
	for _, op := range ops {
		total += int(op)
	}
	n := r.IntN(total)
	for _, op := range ops {
		if n -= int(op); n < 0 {
			return op
		}
	}
	panic("weights changed while picking an operation")
}

// RandVector3 returns a vector with every coordinate in [-limit, limit).
func RandVector3(r *rand.Rand, limit float32) Vector3 {
	coord := func() float32 { return (r.Float32()*2 - 1) * limit }
	return Vector3{X: coord(), Y: coord(), Z: coord()}
}

// RandProfile returns a profile with an age in [0, 100) and a random level.
func RandProfile(r *rand.Rand) Profile {
	return Profile{Age: r.Int32N(100), Level: uint16(r.IntN(1 << 16))} //nolint:gosec // bounded
}
