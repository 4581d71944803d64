package ecs

import (
	"testing"

	. "github.com/argus-labs/fastecs/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkChunkFreeList asserts that the chunks reachable from the free head are exactly the chunks
// with free capacity.
func checkChunkFreeList(t *testing.T, s *Storage) {
	t.Helper()

	reachable := make(map[uint32]bool)
	for head := s.freeHead; int(head) != len(s.chunks); head = s.freeList[head] {
		require.Less(t, int(head), len(s.chunks), "free list points past the chunks")
		require.False(t, reachable[head], "free list has a cycle at chunk %d", head)
		reachable[head] = true
	}
	for i, chunk := range s.chunks {
		assert.Equal(t, !chunk.IsFull(), reachable[uint32(i)], "chunk %d", i) //nolint:gosec // test index
	}
}

func TestStorage_EntitiesPerChunk(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	arch := w.CreateArchetype(ids.counter)

	cfg := DefaultConfig()
	assert.Equal(t, 1024, entitiesPerChunk(arch, cfg), "slot bits bound the default capacity")

	footprint := 2 + int(entityHeaderSize) + int(arch.Footprint())
	cfg.MaxChunkBytes = 100 * footprint
	assert.Equal(t, 99, entitiesPerChunk(arch, cfg), "one block is kept for alignment padding")

	cfg.MaxChunkBytes = 1
	assert.Equal(t, 1, entitiesPerChunk(arch, cfg))
}

func TestStorage_GrowsPastInitialChunkTable(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t, smallChunks)
	ctx := newTestContext(t, w)
	arch := w.CreateArchetype(ids.profile, ids.transform)
	s := ctx.Storage(arch)
	assert.Len(t, s.freeList, initialChunkTableSize)

	n := (initialChunkTableSize+1)*16 + 1
	entities := createN(ctx, arch, n)

	assert.Equal(t, n, s.Len())
	assert.Equal(t, initialChunkTableSize+2, s.ChunkCount())
	assert.Len(t, s.freeList, 2*initialChunkTableSize)
	checkChunkFreeList(t, s)

	for i, e := range entities {
		assert.Equal(t, int32(i), Get[Profile](e).Age) //nolint:gosec // test data
		assert.Same(t, e, ctx.Entity(e.ID()))
	}
}

// storageOp is a randomized storage operation whose value is its relative frequency.
type storageOp uint8

const (
	opCreate  storageOp = 45
	opRelease storageOp = 35
	opClone   storageOp = 12
	opExtend  storageOp = 8
)

func TestStorage_ChunkFreeListInvariant(t *testing.T) {
	t.Parallel()

	r := NewRand(t)
	w, ids := newTestWorld(t, smallChunks)
	ctx := newTestContext(t, w)
	s := ctx.Storage(w.CreateArchetype(ids.profile))

	ops := []storageOp{opCreate, opRelease, opClone, opExtend}
	live := make(map[*Entity]int32)
	extended := make(map[*Entity]int32)
	for i := range 3000 {
		op := RandWeightedOp(r, ops)
		if len(live) == 0 {
			op = opCreate
		}

		switch op {
		case opCreate:
			e := s.Allocate(false)
			*Get[Profile](e) = Profile{Age: int32(i)} //nolint:gosec // test data
			live[e] = int32(i)                        //nolint:gosec // test data
		case opRelease:
			e := RandMapKey(r, live)
			s.Deallocate(e, true)
			delete(live, e)
		case opClone:
			src := RandMapKey(r, live)
			clone := s.CloneEntity(src)
			require.NotSame(t, src, clone)
			live[clone] = live[src]
		case opExtend:
			src := RandMapKey(r, live)
			ext := ctx.ExtendEntityWith(src, ids.tag)
			require.NotNil(t, ext)
			require.NotSame(t, s, ext.Storage())
			extended[ext] = live[src]
		}
		if i%50 == 0 {
			checkChunkFreeList(t, s)
		}
	}
	checkChunkFreeList(t, s)

	assert.Equal(t, len(live), s.Len())
	for e, age := range live {
		require.True(t, e.Valid())
		assert.Equal(t, age, Get[Profile](e).Age)
	}

	count := 0
	s.ForEach(NewQuery(ids.profile), func(e *Entity, row Row) {
		count++
		assert.Equal(t, live[e], Field[Profile](row, 0).Age)
	})
	assert.Equal(t, len(live), count)

	tagged := w.CreateArchetype(ids.profile, ids.tag).Storage(ctx.ID())
	if len(extended) > 0 {
		require.NotNil(t, tagged)
		assert.Equal(t, len(extended), tagged.Len())
		checkChunkFreeList(t, tagged)
	}
	for e, age := range extended {
		assert.Equal(t, age, Get[Profile](e).Age)
	}
}

func TestStorage_CloneEntity(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	ctx := newTestContext(t, w)
	arch := w.CreateArchetype(ids.transform, ids.health, ids.label)
	s := ctx.Storage(arch)

	src := ctx.CreateEntity(arch,
		With(Transform{Scale: Vector3{X: 5}}),
		With(Health{Current: 1, Max: 2}),
		With(Label{Text: "orc"}),
	)
	clone := s.CloneEntity(src)

	assert.NotSame(t, src, clone)
	assert.Equal(t, Transform{Scale: Vector3{X: 5}}, *Get[Transform](clone), "clone skips default constructors")
	assert.Equal(t, Health{Current: 1, Max: 2}, *Get[Health](clone))
	assert.Equal(t, "orc", Get[Label](clone).Text)

	Get[Health](clone).Current = 50
	assert.Equal(t, int32(1), Get[Health](src).Current)
}

func TestStorage_EntityOutOfRange(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t, smallChunks)
	ctx := newTestContext(t, w)
	arch := w.CreateArchetype(ids.profile)
	s := ctx.Storage(arch)
	e := s.Allocate(true)

	assert.Same(t, e, s.Entity(0, 0))
	assert.Nil(t, s.Entity(0, 1), "free slot")
	assert.Nil(t, s.Entity(1, 0), "missing chunk")
	assert.Nil(t, s.Entity(0, 16), "slot past capacity")
}

func TestStorage_ReleaseReturnsMemory(t *testing.T) {
	t.Parallel()

	alloc := &trackingAllocator{}
	cfg := DefaultConfig()
	smallChunks(&cfg)
	w, err := NewWorld(WithConfig(cfg), WithAllocator(alloc))
	require.NoError(t, err)
	profile := MustRegister[Profile](w)

	ctx := newTestContext(t, w)
	createN(ctx, w.CreateArchetype(profile), 20*16)
	s := ctx.Storages()[0]

	assert.Equal(t, 1+20, alloc.allocs, "one free list and one page per chunk")
	assert.Equal(t, 1, alloc.reallocs, "the chunk table doubled once")
	assert.Positive(t, alloc.live)

	pages := s.ChunkCount()
	w.ReleaseContext(ctx)
	assert.Equal(t, pages+1, alloc.frees)
	assert.Zero(t, alloc.live)
}
