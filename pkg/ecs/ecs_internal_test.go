package ecs

import (
	"testing"

	. "github.com/argus-labs/fastecs/pkg/testutils"
	"github.com/stretchr/testify/require"
)

// testIDs holds the component IDs of the shared test components.
type testIDs struct {
	profile   ComponentTypeID
	transform ComponentTypeID
	velocity  ComponentTypeID
	health    ComponentTypeID
	tag       ComponentTypeID
	flag      ComponentTypeID
	counter   ComponentTypeID
	label     ComponentTypeID
}

// smallChunks limits chunks to 16 entities so tests can fill them quickly.
func smallChunks(cfg *Config) {
	cfg.SlotBits = 4
}

// newTestWorld creates a world from the default config, modified by configure, with every test
// component registered.
func newTestWorld(t *testing.T, configure ...func(*Config)) (*World, testIDs) {
	t.Helper()

	cfg := DefaultConfig()
	for _, fn := range configure {
		fn(&cfg)
	}
	w, err := NewWorld(WithConfig(cfg))
	require.NoError(t, err)

	ids := testIDs{
		profile:   MustRegister[Profile](w),
		transform: MustRegister[Transform](w),
		velocity:  MustRegister[Velocity](w),
		health:    MustRegister[Health](w),
		tag:       MustRegister[Tag](w),
		flag:      MustRegister[Flag](w),
		counter:   MustRegister[Counter](w),
		label:     MustRegister[Label](w),
	}
	return w, ids
}

func newTestContext(t *testing.T, w *World) *Context {
	t.Helper()
	ctx, err := w.CreateContext()
	require.NoError(t, err)
	return ctx
}

// createN creates n entities of the archetype with sequential ages and returns them.
func createN(ctx *Context, arch *Archetype, n int) []*Entity {
	entities := make([]*Entity, n)
	for i := range n {
		entities[i] = ctx.CreateEntity(arch, With(Profile{Age: int32(i)})) //nolint:gosec // test data
	}
	return entities
}

// trackingAllocator counts the memory handed out by the heap allocator.
type trackingAllocator struct {
	HeapAllocator
	allocs   int
	reallocs int
	frees    int
	live     int // Bytes handed out and not freed
}

func (a *trackingAllocator) Alloc(size int) []byte {
	a.allocs++
	a.live += size
	return a.HeapAllocator.Alloc(size)
}

func (a *trackingAllocator) Realloc(buf []byte, size int) []byte {
	a.reallocs++
	a.live += size - len(buf)
	return a.HeapAllocator.Realloc(buf, size)
}

func (a *trackingAllocator) Free(buf []byte) {
	a.frees++
	a.live -= len(buf)
}
