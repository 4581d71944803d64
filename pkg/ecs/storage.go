package ecs

import (
	"unsafe"

	"github.com/argus-labs/fastecs/pkg/assert"
)

// initialChunkTableSize is the number of chunks a storage has room for before its tables grow.
const initialChunkTableSize = 16

// Storage is the set of chunks realizing one archetype in one context.
//
// The chunk free list threads the chunks that still have free slots: freeHead is the first of them
// and freeList[i] is the one after chunk i. A head equal to the chunk count means every chunk is
// full, and the next allocation appends a chunk. Every chunk with free capacity is reachable from
// the head, and no full chunk is.
type Storage struct {
	index     uint32     // Index of the storage within its context
	context   *Context   // Context owning the storage
	archetype *Archetype // Archetype of every entity in the storage
	allocator Allocator  // Allocator of chunk pages and the chunk free list

	chunks   []*Chunk
	freeBuf  []byte   // Allocator memory backing freeList
	freeList []uint32 // Chunk index -> next chunk index with free capacity
	freeHead uint32   // First chunk with free capacity

	perChunk  int // Entities per chunk
	pageBytes int // Allocator bytes per chunk
	maxChunks int // Chunk count limit from the EntityID layout
	count     int // Number of live entities
}

// entitiesPerChunk returns the capacity of a chunk for the archetype.
func entitiesPerChunk(arch *Archetype, cfg Config) int {
	footprint := 2 + int(entityHeaderSize) + int(arch.footprint)
	n := cfg.MaxChunkBytes/footprint - 1 // one block is kept for alignment padding
	n = min(n, int(1)<<cfg.SlotBits)
	return max(n, 1)
}

// newStorage creates an empty storage.
func newStorage(ctx *Context, arch *Archetype, index uint32) *Storage {
	cfg := &ctx.world.config
	s := &Storage{
		index:     index,
		context:   ctx,
		archetype: arch,
		allocator: ctx.world.allocator,
		chunks:    make([]*Chunk, 0, initialChunkTableSize),
		freeHead:  0,
		perChunk:  entitiesPerChunk(arch, *cfg),
		maxChunks: int(1) << cfg.ChunkBits,
	}
	s.pageBytes = chunkPageSize(arch, s.perChunk)
	s.resizeFreeList(initialChunkTableSize)
	return s
}

// -------------------------------------------------------------------------------------------------
// Entity operations
// -------------------------------------------------------------------------------------------------

// Allocate takes a free slot, appending a chunk if every chunk is full. It runs the components'
// default constructors when callInit is set.
func (s *Storage) Allocate(callInit bool) *Entity {
	chunkCount := uint32(len(s.chunks)) //nolint:gosec // bounded by maxChunks
	if s.freeHead == chunkCount {
		assert.That(len(s.chunks) < s.maxChunks, "storage %d exceeds %d chunks", s.index, s.maxChunks)
		if len(s.chunks) == len(s.freeList) {
			s.grow()
		}
		s.chunks = append(s.chunks, newChunk(s, chunkCount))
		s.freeList[s.freeHead] = chunkCount + 1

		s.context.world.logger.Debug().Uint64("archetype", uint64(s.archetype.id)).
			Uint32("storage", s.index).Uint32("chunk", chunkCount).Int("capacity", s.perChunk).
			Msg("allocated chunk")
	}

	chunk := s.chunks[s.freeHead]
	e := chunk.Allocate(callInit)
	if chunk.IsFull() {
		s.freeHead = s.freeList[s.freeHead]
	}
	s.count++
	return e
}

// Deallocate releases the entity's slot, running the components' destructors when callDrop is set.
func (s *Storage) Deallocate(e *Entity, callDrop bool) {
	assert.That(e.storage == s, "entity does not belong to storage %d", s.index)

	chunk := s.chunks[e.chunk]
	wasFull := chunk.IsFull()
	chunk.Deallocate(e, callDrop)
	if wasFull {
		s.freeList[e.chunk] = s.freeHead
		s.freeHead = e.chunk
	}
	s.count--
}

// CloneEntity allocates a new entity and copy-assigns every component of src into it. Default
// constructors are not run.
func (s *Storage) CloneEntity(src *Entity) *Entity {
	assert.That(src.storage.archetype == s.archetype, "clone source has a different archetype")
	assert.That(src.valid, "clone of a released entity")

	dst := s.Allocate(false)
	srcChunk := src.storage.chunks[src.chunk]
	dstChunk := s.chunks[dst.chunk]
	for i, desc := range s.archetype.components {
		desc.Copy(dstChunk.component(uint32(dst.slot), i), srcChunk.component(uint32(src.slot), i))
	}
	return dst
}

// Entity returns the live entity at the location, or nil if the location is out of range or free.
func (s *Storage) Entity(chunk, slot uint32) *Entity {
	if int(chunk) >= len(s.chunks) || int(slot) >= s.perChunk {
		return nil
	}
	e := &s.chunks[chunk].entities[slot]
	if !e.valid {
		return nil
	}
	return e
}

// -------------------------------------------------------------------------------------------------
// Iteration
// -------------------------------------------------------------------------------------------------

// ForEach calls fn for every live entity of the storage. The archetype must match the query.
func (s *Storage) ForEach(q Query, fn EachFunc) {
	s.forEach(q.columns(s.archetype), fn, nil)
}

// ForEachBatch calls fn once per non-empty chunk with the chunk's full slot range.
func (s *Storage) ForEachBatch(q Query, fn BatchFunc) {
	s.forEachBatch(q.columns(s.archetype), fn, nil)
}

func (s *Storage) forEach(positions []int, fn EachFunc, local any) {
	for _, chunk := range s.chunks {
		if !chunk.IsEmpty() {
			chunk.forEach(0, chunk.capacity, positions, fn, local)
		}
	}
}

func (s *Storage) forEachBatch(positions []int, fn BatchFunc, local any) {
	for _, chunk := range s.chunks {
		if !chunk.IsEmpty() {
			chunk.forEachBatch(0, chunk.capacity, positions, fn, local)
		}
	}
}

// -------------------------------------------------------------------------------------------------
// Accessors
// -------------------------------------------------------------------------------------------------

// Index returns the storage index within its context.
func (s *Storage) Index() uint32 { return s.index }

// Archetype returns the archetype of the storage.
func (s *Storage) Archetype() *Archetype { return s.archetype }

// Context returns the context owning the storage.
func (s *Storage) Context() *Context { return s.context }

// Len returns the number of live entities.
func (s *Storage) Len() int { return s.count }

// ChunkCount returns the number of chunks.
func (s *Storage) ChunkCount() int { return len(s.chunks) }

// Chunk returns the i-th chunk.
func (s *Storage) Chunk(i int) *Chunk { return s.chunks[i] }

// EntitiesPerChunk returns the capacity of every chunk of the storage.
func (s *Storage) EntitiesPerChunk() int { return s.perChunk }

// PageBytes returns the allocator bytes of every chunk of the storage.
func (s *Storage) PageBytes() int { return s.pageBytes }

// -------------------------------------------------------------------------------------------------
// Memory management
// -------------------------------------------------------------------------------------------------

// grow doubles the chunk tables.
func (s *Storage) grow() {
	size := 2 * len(s.freeList)
	chunks := make([]*Chunk, len(s.chunks), size)
	copy(chunks, s.chunks)
	s.chunks = chunks
	s.resizeFreeList(size)
}

// resizeFreeList reallocates the chunk free list through the allocator.
func (s *Storage) resizeFreeList(size int) {
	bytes := size * int(unsafe.Sizeof(uint32(0)))
	if s.freeBuf == nil {
		s.freeBuf = s.allocator.Alloc(bytes)
	} else {
		s.freeBuf = s.allocator.Realloc(s.freeBuf, bytes)
	}
	assert.That(len(s.freeBuf) >= bytes, "allocator returned %d bytes, want %d", len(s.freeBuf), bytes)

	data := unsafe.SliceData(s.freeBuf)
	assert.That(uintptr(unsafe.Pointer(data))%unsafe.Alignof(uint32(0)) == 0, "chunk free list is misaligned")
	s.freeList = unsafe.Slice((*uint32)(unsafe.Pointer(data)), size)
}

// release destroys every entity, running destructors, and returns all memory to the allocator.
func (s *Storage) release() {
	for _, chunk := range s.chunks {
		chunk.release(true)
	}
	s.allocator.Free(s.freeBuf)
	s.chunks = nil
	s.freeBuf = nil
	s.freeList = nil
	s.freeHead = 0
	s.count = 0
}
