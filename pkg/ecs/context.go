package ecs

import (
	"reflect"
	"unsafe"

	"github.com/argus-labs/fastecs/pkg/assert"
)

// ContextID identifies a context within its world.
type ContextID uint8

// ComponentValue is a component value supplied when creating or extending an entity.
type ComponentValue struct {
	id  ComponentTypeID
	typ reflect.Type
	ptr unsafe.Pointer
}

// With wraps a registered component value.
func With[T any](value T) ComponentValue {
	return ComponentValue{typ: typeOf[T](), ptr: unsafe.Pointer(&value)}
}

// RawValue wraps the memory of a component registered with RegisterDescriptor. The memory must
// stay valid until the call consuming the value returns.
func RawValue(id ComponentTypeID, ptr unsafe.Pointer) ComponentValue {
	return ComponentValue{id: id, ptr: ptr}
}

// Context is an isolation domain. It owns one storage per archetype used in it, and entities of
// different contexts never see each other through iteration or lookup.
type Context struct {
	id       ContextID
	world    *World
	catalog  *Catalog
	storages []*Storage    // Storages in creation order
	events   *EventManager // Receives entity creation and deletion events, may be nil
}

// newContext creates an empty context.
func newContext(w *World, id ContextID) *Context {
	return &Context{
		id:       id,
		world:    w,
		catalog:  w.catalog,
		storages: make([]*Storage, 0),
	}
}

// ID returns the context id.
func (c *Context) ID() ContextID { return c.id }

// World returns the world owning the context.
func (c *Context) World() *World { return c.world }

// SetEventManager sets the manager notified of entity creation and deletion. Pass nil to stop
// notifications.
func (c *Context) SetEventManager(em *EventManager) { c.events = em }

// EventManager returns the context's event manager, or nil.
func (c *Context) EventManager() *EventManager { return c.events }

// Storages returns the storages in creation order. The slice must not be modified.
func (c *Context) Storages() []*Storage { return c.storages }

// Len returns the number of live entities in the context.
func (c *Context) Len() int {
	n := 0
	for _, s := range c.storages {
		n += s.count
	}
	return n
}

// Storage returns the storage of the archetype in this context, creating it on first use.
func (c *Context) Storage(arch *Archetype) *Storage {
	if s, ok := arch.storages[c.id]; ok {
		return s
	}

	index := uint32(len(c.storages)) //nolint:gosec // bounded by the storage bits
	assert.That(index < 1<<c.world.config.StorageBits, "context %d exceeds %d storages",
		c.id, 1<<c.world.config.StorageBits)

	s := newStorage(c, arch, index)
	c.storages = append(c.storages, s)
	arch.storages[c.id] = s

	c.world.logger.Debug().Uint8("context", uint8(c.id)).Uint32("storage", index).
		Uint64("archetype", uint64(arch.id)).Int("entities_per_chunk", s.perChunk).
		Int("page_bytes", s.pageBytes).Msg("created storage")
	return s
}

// -------------------------------------------------------------------------------------------------
// Entity operations
// -------------------------------------------------------------------------------------------------

// CreateEntity creates an entity of the archetype. Components without a supplied value are
// default-constructed. Every supplied value must belong to the archetype.
func (c *Context) CreateEntity(arch *Archetype, values ...ComponentValue) *Entity {
	s := c.Storage(arch)
	e := s.Allocate(false)
	chunk := s.chunks[e.chunk]

	var supplied uint64
	for _, v := range values {
		id := c.resolve(v)
		i, ok := arch.Index(id)
		assert.That(ok, "component %d is not part of archetype %#x", id, arch.id)
		supplied |= 1 << i
	}
	for i, desc := range arch.components {
		if supplied&(1<<i) == 0 {
			desc.Init(chunk.component(uint32(e.slot), i))
		}
	}
	for _, v := range values {
		i, _ := arch.Index(c.resolve(v))
		arch.components[i].Copy(chunk.component(uint32(e.slot), i), v.ptr)
	}

	c.notifyCreate(e)
	return e
}

// CreateEntityFromClass creates an entity of the class's archetype.
func (c *Context) CreateEntityFromClass(class EntityClass, values ...ComponentValue) *Entity {
	return c.CreateEntity(c.catalog.GetOrCreateClass(class), values...)
}

// CreateEntityWith creates an entity whose archetype is exactly the set of supplied values.
func (c *Context) CreateEntityWith(values ...ComponentValue) *Entity {
	ids := make([]ComponentTypeID, len(values))
	for i, v := range values {
		ids[i] = c.resolve(v)
	}
	return c.CreateEntity(c.catalog.GetOrCreate(ids...), values...)
}

// CloneEntity creates a copy of the entity in the same storage.
func (c *Context) CloneEntity(src *Entity) *Entity {
	assert.That(src.storage.context == c, "clone of an entity from another context")
	e := src.storage.CloneEntity(src)
	c.notifyCreate(e)
	return e
}

// ExtendEntity creates a new entity with the source's components plus the supplied ones. It returns
// nil if the source already has any of them. The source entity is left untouched.
func (c *Context) ExtendEntity(src *Entity, values ...ComponentValue) *Entity {
	ids := make([]ComponentTypeID, len(values))
	for i, v := range values {
		ids[i] = c.resolve(v)
	}
	return c.extend(src, ids, values)
}

// ExtendEntityWith is like ExtendEntity but default-constructs the new components.
func (c *Context) ExtendEntityWith(src *Entity, ids ...ComponentTypeID) *Entity {
	return c.extend(src, ids, nil)
}

func (c *Context) extend(src *Entity, ids []ComponentTypeID, values []ComponentValue) *Entity {
	assert.That(src.valid, "extend of a released entity")

	srcArch := src.storage.archetype
	if len(ids) == 0 || srcArch.ContainsAny(ids...) {
		return nil
	}
	dstArch := c.catalog.Extend(srcArch, ids...)
	assert.That(dstArch != nil, "extend resolved no archetype")

	dst := c.Storage(dstArch).Allocate(false)
	c.copyShared(dst, src)

	dstChunk := dst.storage.chunks[dst.chunk]
	for _, id := range ids {
		i, _ := dstArch.Index(id)
		desc := dstArch.components[i]
		ptr := dstChunk.component(uint32(dst.slot), i)
		if v, ok := findValue(values, ids, id); ok {
			desc.Copy(ptr, v.ptr)
		} else {
			desc.Init(ptr)
		}
	}

	c.notifyCreate(dst)
	return dst
}

// RemoveComponentsFromEntity creates a new entity with the source's components minus the given
// ones. It returns nil unless the source has all of them. The source entity is left untouched.
func (c *Context) RemoveComponentsFromEntity(src *Entity, ids ...ComponentTypeID) *Entity {
	assert.That(src.valid, "remove from a released entity")

	srcArch := src.storage.archetype
	if len(ids) == 0 || !srcArch.ContainsAll(ids...) {
		return nil
	}
	dstArch := c.catalog.Remove(srcArch, ids...)
	assert.That(dstArch != nil, "remove resolved no archetype")

	dst := c.Storage(dstArch).Allocate(false)
	c.copyShared(dst, src)

	c.notifyCreate(dst)
	return dst
}

// Entity resolves a global identifier. It returns nil if the identifier belongs to another
// context, points outside the context's storages, or is stale.
func (c *Context) Entity(id EntityID) *Entity {
	addr := c.world.layout.Decode(id)
	if addr.Context != c.id || int(addr.Storage) >= len(c.storages) {
		return nil
	}
	e := c.storages[addr.Storage].Entity(addr.Chunk, addr.Slot)
	if e == nil || e.gen != addr.Generation {
		return nil
	}
	return e
}

// ReleaseEntity notifies the deletion, then destroys the entity and frees its slot.
func (c *Context) ReleaseEntity(e *Entity) {
	assert.That(e.storage.context == c, "release of an entity from another context")
	c.notifyDelete(e)
	e.storage.Deallocate(e, true)
}

// CopyEntityData copy-assigns every component dst and src share. The entities may live in
// different contexts, which makes this the building block of migration. It returns the number of
// components copied.
func (c *Context) CopyEntityData(dst, src *Entity) int {
	assert.That(dst.storage.context == c, "copy into an entity from another context")
	return c.copyShared(dst, src)
}

// copyShared copies the components of src that dst also has.
func (c *Context) copyShared(dst, src *Entity) int {
	srcArch, dstArch := src.storage.archetype, dst.storage.archetype
	srcChunk, dstChunk := src.storage.chunks[src.chunk], dst.storage.chunks[dst.chunk]

	n := 0
	for i, desc := range srcArch.components {
		j, ok := dstArch.Index(desc.ID)
		if !ok {
			continue
		}
		desc.Copy(dstChunk.component(uint32(dst.slot), j), srcChunk.component(uint32(src.slot), i))
		n++
	}
	return n
}

// -------------------------------------------------------------------------------------------------
// Iteration
// -------------------------------------------------------------------------------------------------

// ForEach calls fn for every live entity in the context whose archetype matches the query.
func (c *Context) ForEach(q Query, fn EachFunc) {
	c.forEach(q, fn, nil)
}

// ForEachBatch calls fn once per non-empty chunk of every matching storage.
func (c *Context) ForEachBatch(q Query, fn BatchFunc) {
	c.forEachBatch(q, fn, nil)
}

func (c *Context) forEach(q Query, fn EachFunc, local any) {
	for _, s := range c.storages {
		if q.Matches(s.archetype) {
			s.forEach(q.columns(s.archetype), fn, local)
		}
	}
}

func (c *Context) forEachBatch(q Query, fn BatchFunc, local any) {
	for _, s := range c.storages {
		if q.Matches(s.archetype) {
			s.forEachBatch(q.columns(s.archetype), fn, local)
		}
	}
}

// registryRef implements Iterable.
func (c *Context) registryRef() *componentRegistry { return &c.world.registry }

// -------------------------------------------------------------------------------------------------
// Lifecycle
// -------------------------------------------------------------------------------------------------

// Release destroys every entity of the context and frees its storages. Deletion events are not
// raised.
func (c *Context) Release() {
	for _, s := range c.storages {
		delete(s.archetype.storages, c.id)
		s.release()
	}
	c.storages = nil
}

// -------------------------------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------------------------------

// resolve returns the component ID of a supplied value.
func (c *Context) resolve(v ComponentValue) ComponentTypeID {
	if v.typ == nil {
		return v.id
	}
	id, ok := c.world.registry.lookup(v.typ)
	assert.That(ok, "component type %s is not registered", v.typ)
	return id
}

func (c *Context) notifyCreate(e *Entity) {
	if c.events != nil {
		Trigger(c.events, CreateEntityEvent{Entity: e})
	}
}

func (c *Context) notifyDelete(e *Entity) {
	if c.events != nil {
		Trigger(c.events, DeleteEntityEvent{Entity: e})
	}
}

func findValue(values []ComponentValue, ids []ComponentTypeID, id ComponentTypeID) (ComponentValue, bool) {
	for i, v := range values {
		if ids[i] == id {
			return v, true
		}
	}
	return ComponentValue{}, false
}
