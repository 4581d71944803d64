package ecs

import (
	"testing"

	. "github.com/argus-labs/fastecs/pkg/testutils"
	"github.com/stretchr/testify/assert"
)

func TestEach_TypedIteration(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	ctx := newTestContext(t, w)
	createN(ctx, w.CreateArchetype(ids.profile, ids.health, ids.velocity), 7)
	createN(ctx, w.CreateArchetype(ids.health, ids.profile), 5)
	createN(ctx, w.CreateArchetype(ids.profile), 3)

	n := 0
	Each3(ctx, func(_ *Entity, v *Velocity, p *Profile, h *Health) {
		v.Magnitude = float32(p.Age)
		h.Current -= 10
		n++
	})
	assert.Equal(t, 7, n)

	damaged := 0
	Each2(ctx, func(_ *Entity, h *Health, _ *Profile) {
		if h.Current == 90 {
			damaged++
		}
	})
	assert.Equal(t, 7, damaged)

	total := 0
	Each1(w, func(*Entity, *Profile) { total++ })
	assert.Equal(t, 15, total)

	assert.Panics(t, func() { Each1(ctx, func(*Entity, *struct{ X int }) {}) }, "unregistered type")
}

func TestQueryHelpers(t *testing.T) {
	t.Parallel()

	w, ids := newTestWorld(t)
	assert.Equal(t, []ComponentTypeID{ids.profile}, Query1[Profile](w).Components())
	assert.ElementsMatch(t, []ComponentTypeID{ids.velocity, ids.profile}, Query2[Velocity, Profile](w).Components())
	assert.ElementsMatch(t, []ComponentTypeID{ids.tag, ids.flag, ids.label}, Query3[Tag, Flag, Label](w).Components())

	arch := w.CreateArchetype(ids.profile, ids.velocity)
	assert.True(t, Query2[Velocity, Profile](w).Matches(arch))
	assert.False(t, Query3[Profile, Velocity, Tag](w).Matches(arch))
}
