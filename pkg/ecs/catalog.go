package ecs

import (
	"github.com/argus-labs/fastecs/pkg/assert"
	"github.com/rs/zerolog"
)

// EntityClass is a named, declared list of components. It resolves to the archetype of its
// component set.
type EntityClass struct {
	name string
	ids  []ComponentTypeID
}

// DefineClass declares an entity class.
func DefineClass(name string, ids ...ComponentTypeID) EntityClass {
	return EntityClass{name: name, ids: append([]ComponentTypeID(nil), ids...)}
}

// Name returns the class name.
func (c EntityClass) Name() string { return c.name }

// Components returns the declared component IDs.
func (c EntityClass) Components() []ComponentTypeID { return c.ids }

// Catalog deduplicates component sets into archetypes. Every archetype it returns is cached for the
// lifetime of the world, and equivalent component sets always resolve to the same *Archetype.
type Catalog struct {
	registry      *componentRegistry
	archetypes    map[ArchetypeID]*Archetype // Archetype identity -> archetype
	ordered       []*Archetype               // Archetypes in creation order
	strategy      LookupStrategy
	maxComponents int
	logger        *zerolog.Logger
}

// newCatalog creates an empty catalog.
func newCatalog(registry *componentRegistry, cfg Config, logger *zerolog.Logger) *Catalog {
	return &Catalog{
		registry:      registry,
		archetypes:    make(map[ArchetypeID]*Archetype),
		ordered:       make([]*Archetype, 0),
		strategy:      cfg.Lookup,
		maxComponents: cfg.MaxComponentsPerEntity,
		logger:        logger,
	}
}

// GetOrCreate returns the archetype of the given components, creating it on first use. Duplicate
// IDs are ignored and the first occurrence fixes the component's position.
func (c *Catalog) GetOrCreate(ids ...ComponentTypeID) *Archetype {
	components := c.resolve(ids)

	var id ArchetypeID
	for _, desc := range components {
		id += ArchetypeID(desc.hash)
	}

	if arch, exists := c.archetypes[id]; exists {
		assert.That(arch.sameSet(components), "archetype identity %#x collides for different components", id)
		return arch
	}

	arch := newArchetype(len(c.ordered), components, c.strategy, c.registry.limit)
	assert.That(arch.id == id, "archetype identity mismatch")
	c.archetypes[id] = arch
	c.ordered = append(c.ordered, arch)

	if e := c.logger.Debug(); e.Enabled() {
		names := make([]string, len(components))
		for i, desc := range components {
			names[i] = desc.Name
		}
		e.Uint64("archetype", uint64(id)).Strs("components", names).Msg("created archetype")
	}
	return arch
}

// GetOrCreateClass returns the archetype of an entity class.
func (c *Catalog) GetOrCreateClass(class EntityClass) *Archetype {
	return c.GetOrCreate(class.ids...)
}

// Extend returns the archetype with the extra components added. It returns nil if the archetype
// already contains every extra component.
func (c *Catalog) Extend(arch *Archetype, extra ...ComponentTypeID) *Archetype {
	if arch.ContainsAll(extra...) {
		return nil
	}

	ids := make([]ComponentTypeID, 0, arch.Len()+len(extra))
	ids = append(ids, arch.ids...)
	for _, id := range extra {
		if !arch.Has(id) {
			ids = append(ids, id)
		}
	}
	return c.GetOrCreate(ids...)
}

// Remove returns the archetype with the given components removed. It returns nil if the archetype
// contains none of them.
func (c *Catalog) Remove(arch *Archetype, remove ...ComponentTypeID) *Archetype {
	if !arch.ContainsAny(remove...) {
		return nil
	}

	ids := make([]ComponentTypeID, 0, arch.Len())
	for _, id := range arch.ids {
		if !containsID(remove, id) {
			ids = append(ids, id)
		}
	}
	return c.GetOrCreate(ids...)
}

// Archetypes returns every archetype in creation order. The slice must not be modified.
func (c *Catalog) Archetypes() []*Archetype {
	return c.ordered
}

// Len returns the number of archetypes.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// resolve turns IDs into deduplicated descriptors, keeping the first occurrence of each.
func (c *Catalog) resolve(ids []ComponentTypeID) []*ComponentDescriptor {
	components := make([]*ComponentDescriptor, 0, len(ids))
	for i, id := range ids {
		if containsID(ids[:i], id) {
			continue
		}
		components = append(components, c.registry.get(id))
	}
	assert.That(len(components) <= c.maxComponents,
		"archetype has %d components, limit is %d", len(components), c.maxComponents)
	return components
}

func containsID(ids []ComponentTypeID, id ComponentTypeID) bool {
	for _, cid := range ids {
		if cid == id {
			return true
		}
	}
	return false
}
