package testutils

import "github.com/argus-labs/fastecs/pkg/assert"

// maxGenDepth is the largest number of choices one iteration of a Gen can make.
const maxGenDepth = 32

// Gen enumerates every sequence of bounded choices a test body makes, one sequence per iteration:
//
//	g := NewGen()
//	for !g.Done() {
//		workers := g.Range(1, 8)
//		split := g.Bool()
//		...
//	}
//
// Each iteration replays the choices of the previous one and advances the rightmost choice that is
// still below its bound, resetting every choice after it. Choices made after the advanced one are
// discovered anew, so the bound of a later choice may depend on earlier values.
//
// See: <https://matklad.github.io/2021/11/07/generate-all-the-things.html>
type Gen struct {
	started bool
	choices [maxGenDepth]choice
	pos     int // Index of the next choice of this iteration
	depth   int // Number of choices recorded so far
}

type choice struct {
	value uint32
	bound uint32
}

// NewGen creates a new exhaustive generator.
func NewGen() *Gen {
	return &Gen{}
}

// Done advances to the next sequence and reports whether every sequence has been produced.
func (g *Gen) Done() bool {
	if !g.started {
		g.started = true
		return false
	}
	for i := g.depth - 1; i >= 0; i-- {
		if g.choices[i].value < g.choices[i].bound {
			g.choices[i].value++
			g.depth = i + 1
			g.pos = 0
			return false
		}
	}
	return true
}

// next records a choice in [0, bound] and returns its value for this iteration.
func (g *Gen) next(bound uint32) uint32 {
	assert.That(g.pos < maxGenDepth, "exhaustigen: more than %d choices", maxGenDepth)
	if g.pos == g.depth {
		g.choices[g.pos] = choice{}
		g.depth++
	}
	c := &g.choices[g.pos]
	c.bound = bound
	g.pos++
	return c.value
}

// Intn returns an int in range [0, bound] (inclusive).
func (g *Gen) Intn(bound int) int {
	return int(g.next(uint32(bound))) //nolint:gosec // bound is expected to be small in tests
}

// Range returns an int in range [minVal, maxVal] (inclusive).
func (g *Gen) Range(minVal, maxVal int) int {
	assert.That(minVal <= maxVal, "exhaustigen: min > max")
	return minVal + g.Intn(maxVal-minVal)
}

// Index returns a valid index into a slice of the given length.
func (g *Gen) Index(length int) int {
	assert.That(length > 0, "exhaustigen: empty slice")
	return g.Intn(length - 1)
}

// Bool returns an exhaustive boolean value.
func (g *Gen) Bool() bool {
	return g.Intn(1) == 1
}

// Pick returns an element from the slice.
func Pick[T any](g *Gen, slice []T) T {
	return slice[g.Index(len(slice))]
}
