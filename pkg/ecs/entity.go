package ecs

import (
	"fmt"
	"unsafe"

	"github.com/argus-labs/fastecs/pkg/assert"
)

// EntityID is the global identifier of an entity. It packs, from the most significant bit down:
//
//	16 bits generation | 8 bits context | storage index | chunk index | slot index
//
// The widths of the last three fields come from the world's IDLayout.
type EntityID uint64

const (
	generationShift = 48
	contextShift    = 40
)

// EntityAddress is the decoded form of an EntityID.
type EntityAddress struct {
	Context    ContextID
	Storage    uint32
	Chunk      uint32
	Slot       uint32
	Generation uint16
}

// IDLayout describes the bit widths of the location fields of an EntityID.
type IDLayout struct {
	SlotBits    uint8
	ChunkBits   uint8
	StorageBits uint8
}

// DefaultIDLayout returns the layout of the default configuration.
func DefaultIDLayout() IDLayout {
	cfg := DefaultConfig()
	return cfg.layout()
}

// Encode packs an address into an EntityID.
func (l IDLayout) Encode(addr EntityAddress) EntityID {
	assert.That(addr.Slot < 1<<l.SlotBits, "slot %d overflows %d bits", addr.Slot, l.SlotBits)
	assert.That(addr.Chunk < 1<<l.ChunkBits, "chunk %d overflows %d bits", addr.Chunk, l.ChunkBits)
	assert.That(addr.Storage < 1<<l.StorageBits, "storage %d overflows %d bits", addr.Storage, l.StorageBits)

	id := uint64(addr.Generation)<<generationShift |
		uint64(addr.Context)<<contextShift |
		uint64(addr.Storage)<<(l.ChunkBits+l.SlotBits) |
		uint64(addr.Chunk)<<l.SlotBits |
		uint64(addr.Slot)
	return EntityID(id)
}

// Decode unpacks an EntityID.
func (l IDLayout) Decode(id EntityID) EntityAddress {
	v := uint64(id)
	return EntityAddress{
		Context:    ContextID(v >> contextShift),
		Storage:    uint32((v >> (l.ChunkBits + l.SlotBits)) & (1<<l.StorageBits - 1)),
		Chunk:      uint32((v >> l.SlotBits) & (1<<l.ChunkBits - 1)),
		Slot:       uint32(v & (1<<l.SlotBits - 1)),
		Generation: uint16(v >> generationShift),
	}
}

// Context returns the context id stored in the EntityID.
func (id EntityID) Context() ContextID {
	return ContextID(uint64(id) >> contextShift)
}

// Generation returns the generation stored in the EntityID.
func (id EntityID) Generation() uint16 {
	return uint16(uint64(id) >> generationShift)
}

func (id EntityID) String() string {
	return fmt.Sprintf("EntityID(%#016x)", uint64(id))
}

// -------------------------------------------------------------------------------------------------
// Entity header
// -------------------------------------------------------------------------------------------------

// Entity is the identity header of a slot. A *Entity handed out by the engine is stable for the
// lifetime of its chunk. It refers to a live record only while Valid returns true and its
// generation matches the one the caller observed.
type Entity struct {
	storage *Storage
	chunk   uint32
	slot    uint16
	gen     uint16
	valid   bool
}

// entityHeaderSize is the per-slot cost of the header used by the chunk capacity formula.
const entityHeaderSize = unsafe.Sizeof(Entity{})

// Valid reports whether the slot currently holds a live entity.
func (e *Entity) Valid() bool { return e.valid }

// Generation returns the reuse counter of the slot.
func (e *Entity) Generation() uint16 { return e.gen }

// Slot returns the slot index within the chunk.
func (e *Entity) Slot() uint32 { return uint32(e.slot) }

// ChunkIndex returns the chunk index within the storage.
func (e *Entity) ChunkIndex() uint32 { return e.chunk }

// Storage returns the storage owning the entity.
func (e *Entity) Storage() *Storage { return e.storage }

// Archetype returns the archetype of the entity.
func (e *Entity) Archetype() *Archetype { return e.storage.archetype }

// Context returns the context owning the entity.
func (e *Entity) Context() *Context { return e.storage.context }

// ID returns the global identifier of the entity.
func (e *Entity) ID() EntityID {
	ctx := e.storage.context
	return ctx.world.layout.Encode(EntityAddress{
		Context:    ctx.id,
		Storage:    e.storage.index,
		Chunk:      e.chunk,
		Slot:       uint32(e.slot),
		Generation: e.gen,
	})
}

// Has reports whether the entity's archetype contains the component.
func (e *Entity) Has(id ComponentTypeID) bool {
	return e.storage.archetype.Has(id)
}

// Component returns a pointer to the entity's component, or nil if the archetype lacks it.
func (e *Entity) Component(id ComponentTypeID) unsafe.Pointer {
	i, ok := e.storage.archetype.Index(id)
	if !ok {
		return nil
	}
	return e.storage.chunks[e.chunk].component(uint32(e.slot), i)
}

// Get returns a pointer to the entity's component of type T, or nil if the archetype lacks it or T
// is not registered.
func Get[T any](e *Entity) *T {
	id, ok := e.storage.context.world.registry.lookup(typeOf[T]())
	if !ok {
		return nil
	}
	return (*T)(e.Component(id))
}

// Set overwrites the entity's component of type T. It returns false if the archetype lacks it.
func Set[T any](e *Entity, value T) bool {
	ptr := Get[T](e)
	if ptr == nil {
		return false
	}
	*ptr = value
	return true
}
