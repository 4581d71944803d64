package ecs

import (
	"testing"

	. "github.com/argus-labs/fastecs/pkg/testutils"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorld_ContextIDReuse(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorld(t)
	c0 := newTestContext(t, w)
	c1 := newTestContext(t, w)
	c2 := newTestContext(t, w)
	assert.Equal(t, []ContextID{0, 1, 2}, []ContextID{c0.ID(), c1.ID(), c2.ID()})

	w.ReleaseContext(c1)
	assert.Nil(t, w.Context(1))
	assert.Equal(t, []*Context{c0, c2}, w.Contexts())

	reused := newTestContext(t, w)
	assert.Equal(t, ContextID(1), reused.ID())
	assert.NotSame(t, c1, reused)
	assert.Same(t, w, reused.World())

	assert.Panics(t, func() { w.ReleaseContext(c1) }, "already released")
}

func TestWorld_ContextLimit(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorld(t, func(cfg *Config) { cfg.MaxContexts = 2 })
	newTestContext(t, w)
	last := newTestContext(t, w)

	_, err := w.CreateContext()
	require.ErrorIs(t, err, ErrContextLimit)

	w.ReleaseContext(last)
	ctx, err := w.CreateContext()
	require.NoError(t, err)
	assert.Equal(t, ContextID(1), ctx.ID())
}

func TestWorld_EntityAcrossContexts(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	a := newTestContext(t, w)
	b := newTestContext(t, w)
	arch := w.CreateArchetype(ids.profile)

	ea := a.CreateEntity(arch, With(Profile{Age: 1}))
	eb := b.CreateEntity(arch, With(Profile{Age: 2}))
	assert.Same(t, ea, w.Entity(ea.ID()))
	assert.Same(t, eb, w.Entity(eb.ID()))

	idB := eb.ID()
	w.ReleaseContext(b)
	assert.Nil(t, w.Entity(idB))
	assert.Nil(t, w.Entity(w.Layout().Encode(EntityAddress{Context: 200, Generation: 1})))
}

func TestWorld_ForEachAcrossContexts(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	a := newTestContext(t, w)
	b := newTestContext(t, w)
	createN(a, w.CreateArchetype(ids.profile), 4)
	createN(b, w.CreateArchetype(ids.profile, ids.health), 6)
	createN(b, w.CreateArchetype(ids.profile, ids.velocity), 2)

	var total, healthy int
	w.ForEach(NewQuery(ids.profile), func(*Entity, Row) { total++ })
	Each2(w, func(_ *Entity, _ *Profile, h *Health) {
		assert.Equal(t, int32(100), h.Current)
		healthy++
	})
	assert.Equal(t, 12, total)
	assert.Equal(t, 6, healthy)

	batches := 0
	w.ForEachBatch(NewQuery(ids.profile), func(Batch) { batches++ })
	assert.Equal(t, 3, batches, "one non-empty chunk per storage")

	w.Release()
	assert.Empty(t, w.Contexts())
	total = 0
	w.ForEach(NewQuery(ids.profile), func(*Entity, Row) { total++ })
	assert.Zero(t, total)
}

func TestWorld_SetAllocator(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	ctx := newTestContext(t, w)
	ctx.CreateEntity(w.CreateArchetype(ids.profile))

	alloc := &trackingAllocator{}
	w.SetAllocator(alloc)
	ctx.CreateEntity(w.CreateArchetype(ids.profile))
	assert.Zero(t, alloc.allocs, "existing storages keep their allocator")

	ctx.CreateEntity(w.CreateArchetype(ids.health))
	assert.Equal(t, 2, alloc.allocs, "free list and first page of the new storage")

	w.SetAllocator(nil)
	ctx.CreateEntity(w.CreateArchetype(ids.velocity))
	assert.Equal(t, 2, alloc.allocs)
}

func TestWorld_Stats(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t, smallChunks)
	a := newTestContext(t, w)
	b := newTestContext(t, w)
	createN(a, w.CreateArchetype(ids.profile, ids.transform), 20)
	createN(b, w.CreateArchetype(ids.profile), 3)

	stats := w.Stats()
	assert.Equal(t, 8, stats.ComponentTypes)
	assert.Equal(t, 2, stats.Archetypes)
	assert.Equal(t, 23, stats.Entities)
	require.Len(t, stats.Contexts, 2)
	require.Len(t, stats.Contexts[0].Storages, 1)

	storage := stats.Contexts[0].Storages[0]
	assert.Equal(t, []string{"profile", "transform"}, storage.Components)
	assert.Equal(t, 20, storage.Entities)
	assert.Equal(t, 2, storage.Chunks)
	assert.Equal(t, 16, storage.EntitiesPerChunk)

	data, err := w.StatsJSON()
	require.NoError(t, err)

	var decoded WorldStats
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, stats, decoded)
	assert.Contains(t, string(data), `"entities_per_chunk":16`)
}
