package ecs

import (
	"github.com/argus-labs/fastecs/pkg/assert"
	"github.com/kelindar/bitmap"
)

// ArchetypeID is the identity of a component set. It is the wrapping sum of the hash contributions
// of the set's components, so it does not depend on the order the components were declared in.
type ArchetypeID uint64

// Archetype is an immutable schema: an ordered, deduplicated set of components and their layout.
// Archetypes are created and cached by the Catalog and live as long as the world.
// NOTE: the per-context storages map is the only mutable part and is owned by the contexts.
type Archetype struct {
	id          ArchetypeID
	seq         int                    // Creation order in the catalog
	components  []*ComponentDescriptor // Components in declaration order
	ids         []ComponentTypeID      // Component IDs in declaration order
	offsets     []uintptr              // Byte offset of each component inside an entity's footprint
	footprint   uintptr                // Sum of component sizes
	mask        bitmap.Bitmap          // Bitmap of the component IDs
	index       componentIndex         // Component ID -> position
	storages    map[ContextID]*Storage // Storage realizing this archetype in each context
	pointerFree bool                   // Whether every component can live in allocator memory
}

// newArchetype creates an archetype for the given, already deduplicated, components.
func newArchetype(seq int, components []*ComponentDescriptor, strategy LookupStrategy, maxTypes int) *Archetype {
	a := &Archetype{
		seq:         seq,
		components:  components,
		ids:         make([]ComponentTypeID, len(components)),
		offsets:     make([]uintptr, len(components)),
		storages:    make(map[ContextID]*Storage),
		pointerFree: true,
	}

	for i, desc := range components {
		a.ids[i] = desc.ID
		a.offsets[i] = a.footprint
		a.footprint += desc.Size
		a.id += ArchetypeID(desc.hash)
		a.mask.Set(uint32(desc.ID))
		if desc.pointers {
			a.pointerFree = false
		}
	}
	a.index = newComponentIndex(strategy, a.ids, maxTypes)

	assert.That(a.mask.Count() == len(components), "archetype components are not deduplicated")
	return a
}

// ID returns the identity of the archetype.
func (a *Archetype) ID() ArchetypeID { return a.id }

// Len returns the number of components in the archetype.
func (a *Archetype) Len() int { return len(a.components) }

// Components returns the component descriptors in declaration order. The slice must not be
// modified.
func (a *Archetype) Components() []*ComponentDescriptor { return a.components }

// ComponentIDs returns the component IDs in declaration order. The slice must not be modified.
func (a *Archetype) ComponentIDs() []ComponentTypeID { return a.ids }

// Offset returns the byte offset of the i-th component inside an entity's footprint.
func (a *Archetype) Offset(i int) uintptr { return a.offsets[i] }

// Footprint returns the summed size of the archetype's components.
func (a *Archetype) Footprint() uintptr { return a.footprint }

// Index returns the position of the component in the archetype.
func (a *Archetype) Index(id ComponentTypeID) (int, bool) {
	return a.index.find(id)
}

// Has reports whether the archetype contains the component.
func (a *Archetype) Has(id ComponentTypeID) bool {
	return a.mask.Contains(uint32(id))
}

// ContainsAll reports whether the archetype contains every given component.
func (a *Archetype) ContainsAll(ids ...ComponentTypeID) bool {
	for _, id := range ids {
		if !a.mask.Contains(uint32(id)) {
			return false
		}
	}
	return true
}

// ContainsAny reports whether the archetype contains at least one of the given components.
func (a *Archetype) ContainsAny(ids ...ComponentTypeID) bool {
	for _, id := range ids {
		if a.mask.Contains(uint32(id)) {
			return true
		}
	}
	return false
}

// Storage returns the storage realizing this archetype in the context, or nil.
func (a *Archetype) Storage(ctx ContextID) *Storage {
	return a.storages[ctx]
}

// contains returns true if the archetype contains all of the components in the given mask.
func (a *Archetype) contains(mask bitmap.Bitmap) bool {
	intersect := mask.Clone(nil)
	intersect.And(a.mask)
	return intersect.Count() == mask.Count()
}

// sameSet reports whether the archetype holds exactly the given components.
func (a *Archetype) sameSet(components []*ComponentDescriptor) bool {
	if len(components) != len(a.components) {
		return false
	}
	for _, desc := range components {
		if !a.Has(desc.ID) {
			return false
		}
	}
	return true
}
