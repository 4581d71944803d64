package ecs

import (
	"testing"

	. "github.com/argus-labs/fastecs/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentIndex_Strategies(t *testing.T) {
	t.Parallel()

	ids := []ComponentTypeID{5, 2, 9}
	for _, strategy := range []LookupStrategy{LookupLinear, LookupHash, LookupDirect} {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()

			index := newComponentIndex(strategy, ids, 16)
			for want, id := range ids {
				got, ok := index.find(id)
				require.True(t, ok, "component %d", id)
				assert.Equal(t, want, got)
			}

			for _, id := range []ComponentTypeID{0, 3, 15, 100} {
				_, ok := index.find(id)
				assert.False(t, ok, "component %d", id)
			}
		})
	}
}

func TestCatalog_OrderIndependentIdentity(t *testing.T) {
	t.Parallel()

	for _, strategy := range []LookupStrategy{LookupLinear, LookupHash, LookupDirect} {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()

			w, ids := newTestWorld(t, func(cfg *Config) { cfg.Lookup = strategy })
			catalog := w.Catalog()

			a := catalog.GetOrCreate(ids.profile, ids.transform, ids.velocity)
			b := catalog.GetOrCreate(ids.velocity, ids.profile, ids.transform)
			c := catalog.GetOrCreate(ids.transform, ids.profile, ids.velocity, ids.profile)

			assert.Same(t, a, b)
			assert.Same(t, a, c)
			assert.Equal(t, 1, catalog.Len())

			// The first request fixes the column order.
			assert.Equal(t, []ComponentTypeID{ids.profile, ids.transform, ids.velocity}, a.ComponentIDs())
			i, ok := a.Index(ids.velocity)
			require.True(t, ok)
			assert.Equal(t, 2, i)
		})
	}
}

func TestCatalog_Deduplicates(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	catalog := w.Catalog()

	a := catalog.GetOrCreate(ids.profile, ids.profile, ids.health)
	assert.Equal(t, 2, a.Len())
	assert.Same(t, a, catalog.GetOrCreate(ids.health, ids.profile))

	empty := catalog.GetOrCreate()
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, ArchetypeID(0), empty.ID())
	assert.Same(t, empty, catalog.GetOrCreate())

	assert.Equal(t, []*Archetype{a, empty}, catalog.Archetypes())
}

func TestArchetype_Layout(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	a := w.CreateArchetype(ids.flag, ids.counter, ids.profile)

	flagSize := w.Descriptor(ids.flag).Size
	counterSize := w.Descriptor(ids.counter).Size
	profileSize := w.Descriptor(ids.profile).Size

	assert.Equal(t, flagSize+counterSize+profileSize, a.Footprint())
	assert.Equal(t, uintptr(0), a.Offset(0))
	assert.Equal(t, flagSize, a.Offset(1))
	assert.Equal(t, flagSize+counterSize, a.Offset(2))
	assert.True(t, a.pointerFree)

	assert.False(t, w.CreateArchetype(ids.profile, ids.label).pointerFree)
}

func TestArchetype_Predicates(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	a := w.CreateArchetype(ids.profile, ids.transform)

	assert.True(t, a.Has(ids.profile))
	assert.False(t, a.Has(ids.velocity))

	assert.True(t, a.ContainsAll(ids.transform, ids.profile))
	assert.False(t, a.ContainsAll(ids.transform, ids.velocity))
	assert.True(t, a.ContainsAll())

	assert.True(t, a.ContainsAny(ids.velocity, ids.transform))
	assert.False(t, a.ContainsAny(ids.velocity, ids.health))
	assert.False(t, a.ContainsAny())
}

func TestQuery_Matches(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)

	tests := []struct {
		name  string
		arch  []ComponentTypeID
		query []ComponentTypeID
		want  bool
	}{
		{"exact match", []ComponentTypeID{ids.profile, ids.transform}, []ComponentTypeID{ids.profile, ids.transform}, true},
		{"different order", []ComponentTypeID{ids.transform, ids.profile}, []ComponentTypeID{ids.profile, ids.transform}, true},
		{"subset query", []ComponentTypeID{ids.profile, ids.transform}, []ComponentTypeID{ids.transform}, true},
		{"superset query", []ComponentTypeID{ids.profile}, []ComponentTypeID{ids.profile, ids.transform}, false},
		{"disjoint", []ComponentTypeID{ids.health}, []ComponentTypeID{ids.profile}, false},
		{"empty query", []ComponentTypeID{ids.health}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arch := w.CreateArchetype(tt.arch...)
			assert.Equal(t, tt.want, NewQuery(tt.query...).Matches(arch))
		})
	}
}

func TestCatalog_ExtendRemove(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	catalog := w.Catalog()
	base := catalog.GetOrCreate(ids.profile, ids.transform)

	t.Run("extend", func(t *testing.T) {
		ext := catalog.Extend(base, ids.velocity, ids.profile)
		require.NotNil(t, ext)
		assert.Same(t, catalog.GetOrCreate(ids.velocity, ids.transform, ids.profile), ext)
		assert.Nil(t, catalog.Extend(base, ids.profile, ids.transform))
	})

	t.Run("remove", func(t *testing.T) {
		red := catalog.Remove(base, ids.transform, ids.health)
		require.NotNil(t, red)
		assert.Same(t, catalog.GetOrCreate(ids.profile), red)
		assert.Nil(t, catalog.Remove(base, ids.health, ids.velocity))
	})
}

func TestCatalog_Classes(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	mover := DefineClass("mover", ids.profile, ids.transform, ids.velocity)
	assert.Equal(t, "mover", mover.Name())
	assert.Equal(t, []ComponentTypeID{ids.profile, ids.transform, ids.velocity}, mover.Components())

	arch := w.Catalog().GetOrCreateClass(mover)
	assert.Same(t, w.CreateArchetype(ids.velocity, ids.transform, ids.profile), arch)

	ctx := newTestContext(t, w)
	e := ctx.CreateEntityFromClass(mover, With(Velocity{Magnitude: 2}))
	assert.Same(t, arch, e.Archetype())
	assert.Equal(t, float32(2), Get[Velocity](e).Magnitude)
	assert.Equal(t, DefaultTransform(), *Get[Transform](e))
}

func TestCatalog_ComponentLimitPanics(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t, func(cfg *Config) { cfg.MaxComponentsPerEntity = 2 })
	assert.Panics(t, func() { w.CreateArchetype(ids.profile, ids.transform, ids.velocity) })
}
