package ecs

import (
	"reflect"
	"unsafe"

	"github.com/argus-labs/fastecs/pkg/assert"
)

// zeroSizedBase is the column base of every zero-sized component.
var zeroSizedBase uint64 //nolint:gochecknoglobals // address only, never written

// column is the (descriptor, base) pair of one component array in a chunk.
type column struct {
	desc *ComponentDescriptor
	base unsafe.Pointer
}

// at returns the address of the slot's component.
func (col *column) at(slot uintptr) unsafe.Pointer {
	return unsafe.Add(col.base, slot*col.desc.Size)
}

// Chunk is a fixed-capacity page of entity slots. It lays out a free list, the entity headers and
// one densely packed array per component:
//
//	page:    free list | component 1 ... | component 2 ... |   (allocator memory, pointer-free data)
//	typed:   entity headers, components holding Go pointers     (runtime memory)
//
// Each component array starts at an address aligned for the component. Free slots form a singly
// linked list through the free list, terminated by a sentinel equal to the capacity.
type Chunk struct {
	index    uint32   // Index of the chunk within its storage
	storage  *Storage // Storage owning the chunk
	capacity int      // Number of slots
	used     int      // Number of live slots
	freeHead uint16   // First free slot, equals capacity when full
	freeList []uint16 // Slot -> next free slot
	entities []Entity // Slot -> entity header
	columns  []column // Archetype position -> component array

	page  []byte          // Allocator memory backing the free list and pointer-free columns
	typed []reflect.Value // Typed arrays of pointer-holding columns
}

// chunkPageSize returns the allocator bytes a chunk of the archetype needs, alignment slack
// included.
func chunkPageSize(arch *Archetype, capacity int) int {
	size := 2*capacity + 1
	for _, desc := range arch.components {
		if desc.pointers || desc.Size == 0 {
			continue
		}
		size += int(desc.Size)*capacity + int(desc.Align) - 1
	}
	return size
}

// newChunk allocates and lays out a chunk for the storage.
func newChunk(s *Storage, index uint32) *Chunk {
	capacity := s.perChunk
	components := s.archetype.components

	page := s.allocator.Alloc(s.pageBytes)
	assert.That(len(page) >= s.pageBytes, "allocator returned %d bytes, want %d", len(page), s.pageBytes)

	c := &Chunk{
		index:    index,
		storage:  s,
		capacity: capacity,
		freeHead: 0,
		entities: make([]Entity, capacity),
		columns:  make([]column, len(components)),
		page:     page,
	}
	if !s.archetype.pointerFree {
		c.typed = make([]reflect.Value, 0, len(components))
	}

	start := uintptr(unsafe.Pointer(unsafe.SliceData(page)))
	offset := alignUp(start, 2) - start
	c.freeList = unsafe.Slice((*uint16)(unsafe.Pointer(&page[offset])), capacity)
	offset += 2 * uintptr(capacity)

	for i, desc := range components {
		c.columns[i].desc = desc
		switch {
		case desc.Size == 0:
			c.columns[i].base = unsafe.Pointer(&zeroSizedBase)
		case desc.pointers:
			assert.That(!s.archetype.pointerFree, "pointer component %s in a pointer-free archetype", desc.Name)
			arr := reflect.MakeSlice(reflect.SliceOf(desc.Type), capacity, capacity)
			c.typed = append(c.typed, arr)
			c.columns[i].base = arr.UnsafePointer()
		default:
			offset = alignUp(start+offset, desc.Align) - start
			c.columns[i].base = unsafe.Pointer(&page[offset])
			offset += desc.Size * uintptr(capacity)
		}
	}
	assert.That(offset <= uintptr(len(page)), "chunk layout overflows its page")

	for i := range capacity {
		c.freeList[i] = uint16(i + 1) //nolint:gosec // capacity fits in 15 bits
		c.entities[i] = Entity{storage: s, chunk: index, slot: uint16(i)}
	}
	return c
}

// -------------------------------------------------------------------------------------------------
// Slot operations
// -------------------------------------------------------------------------------------------------

// Allocate takes a free slot and marks it live, bumping its generation. It runs every component's
// default constructor when callInit is set. The chunk must not be full.
func (c *Chunk) Allocate(callInit bool) *Entity {
	assert.That(!c.IsFull(), "allocate from full chunk %d", c.index)

	slot := c.freeHead
	c.freeHead = c.freeList[slot]

	e := &c.entities[slot]
	assert.That(e.slot == slot, "slot %d header holds slot %d", slot, e.slot)
	e.valid = true
	e.gen++

	if callInit {
		for i := range c.columns {
			col := &c.columns[i]
			col.desc.Init(col.at(uintptr(slot)))
		}
	}
	c.used++
	return e
}

// Deallocate releases the entity's slot, running every component's destructor when callDrop is
// set. The entity must be live and belong to this chunk.
func (c *Chunk) Deallocate(e *Entity, callDrop bool) {
	assert.That(e.storage == c.storage && e.chunk == c.index, "entity does not belong to chunk %d", c.index)
	assert.That(e.valid, "deallocate of a free slot %d", e.slot)

	if callDrop {
		for i := range c.columns {
			col := &c.columns[i]
			col.desc.Drop(col.at(uintptr(e.slot)))
		}
	}
	c.freeList[e.slot] = c.freeHead
	c.freeHead = e.slot
	e.valid = false
	c.used--
}

// IsFull reports whether every slot is live.
func (c *Chunk) IsFull() bool { return int(c.freeHead) == c.capacity }

// IsEmpty reports whether no slot is live.
func (c *Chunk) IsEmpty() bool { return c.used == 0 }

// Len returns the number of live slots.
func (c *Chunk) Len() int { return c.used }

// Capacity returns the number of slots.
func (c *Chunk) Capacity() int { return c.capacity }

// Index returns the chunk index within its storage.
func (c *Chunk) Index() uint32 { return c.index }

// Entity returns the header of a slot, live or not.
func (c *Chunk) Entity(slot int) *Entity { return &c.entities[slot] }

// component returns the address of the i-th archetype component of a slot.
func (c *Chunk) component(slot uint32, i int) unsafe.Pointer {
	col := &c.columns[i]
	ptr := col.at(uintptr(slot))
	if assert.Enabled {
		assert.That(uintptr(ptr)%col.desc.Align == 0, "component %s is misaligned", col.desc.Name)
	}
	return ptr
}

// release destroys every live entity and returns the page to the allocator.
func (c *Chunk) release(callDrop bool) {
	for slot := range c.entities {
		e := &c.entities[slot]
		if !e.valid {
			continue
		}
		if callDrop {
			for i := range c.columns {
				col := &c.columns[i]
				col.desc.Drop(col.at(uintptr(slot)))
			}
		}
		e.valid = false
	}
	c.used = 0
	c.storage.allocator.Free(c.page)
	c.page = nil
	c.freeList = nil
	c.columns = nil
	c.typed = nil
}

// -------------------------------------------------------------------------------------------------
// Iteration
// -------------------------------------------------------------------------------------------------

// EachFunc is called once per live entity. The Row is only valid during the call.
type EachFunc func(e *Entity, row Row)

// BatchFunc is called once per range. The callback skips entities that are not Valid.
type BatchFunc func(b Batch)

// Row gives access to the queried components of one entity.
type Row struct {
	cols  []column
	slot  uintptr
	Local any // Argument supplied by the caller of the iteration, if any
}

// Ptr returns the address of the i-th queried component.
func (r Row) Ptr(i int) unsafe.Pointer {
	return r.cols[i].at(r.slot)
}

// Field returns the i-th queried component as a *T.
func Field[T any](r Row, i int) *T {
	if assert.Enabled {
		checkColumnType[T](r.cols[i].desc)
	}
	return (*T)(r.Ptr(i))
}

// Batch is a contiguous slot range of one chunk. Entities holds the headers of the range, live or
// not, and the component views returned by Column line up with it.
type Batch struct {
	Start    int      // First slot of the range
	Entities []Entity // Headers of the range
	Local    any      // Argument supplied by the caller of the iteration, if any
	cols     []column
}

// Len returns the number of slots in the range.
func (b Batch) Len() int { return len(b.Entities) }

// Column returns the i-th queried component array of the range.
func Column[T any](b Batch, i int) []T {
	if assert.Enabled {
		checkColumnType[T](b.cols[i].desc)
	}
	if len(b.Entities) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(b.cols[i].at(uintptr(b.Start))), len(b.Entities))
}

// ForEach calls fn for every live slot in [start, end) in ascending slot order. The archetype must
// contain every component of the query.
func (c *Chunk) ForEach(start, end int, q Query, fn EachFunc) {
	c.forEach(start, end, q.columns(c.storage.archetype), fn, nil)
}

// ForEachBatch calls fn once with the whole range [start, end).
func (c *Chunk) ForEachBatch(start, end int, q Query, fn BatchFunc) {
	c.forEachBatch(start, end, q.columns(c.storage.archetype), fn, nil)
}

func (c *Chunk) forEach(start, end int, positions []int, fn EachFunc, local any) {
	assert.That(0 <= start && start <= end && end <= c.capacity, "range [%d, %d) out of chunk bounds", start, end)

	cols := c.view(positions)
	for slot := start; slot < end; slot++ {
		e := &c.entities[slot]
		if !e.valid {
			continue
		}
		fn(e, Row{cols: cols, slot: uintptr(slot), Local: local})
	}
}

func (c *Chunk) forEachBatch(start, end int, positions []int, fn BatchFunc, local any) {
	assert.That(0 <= start && start <= end && end <= c.capacity, "range [%d, %d) out of chunk bounds", start, end)

	fn(Batch{
		Start:    start,
		Entities: c.entities[start:end],
		Local:    local,
		cols:     c.view(positions),
	})
}

// view returns the columns at the given archetype positions, in query order.
func (c *Chunk) view(positions []int) []column {
	cols := make([]column, len(positions))
	for i, p := range positions {
		cols[i] = c.columns[p]
	}
	return cols
}

// -------------------------------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------------------------------

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

func checkColumnType[T any](desc *ComponentDescriptor) {
	typ := typeOf[T]()
	if desc.Type != nil {
		assert.That(desc.Type == typ, "component %s is %s, not %s", desc.Name, desc.Type, typ)
		return
	}
	assert.That(typ.Size() == desc.Size, "component %s has size %d, %s has %d", desc.Name, desc.Size, typ, typ.Size())
}
