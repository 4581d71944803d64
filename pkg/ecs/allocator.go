package ecs

// Allocator supplies the raw memory of chunk pages and storage chunk tables. Implementations must
// return zeroed memory from Alloc and preserve the old contents, zero-extended, in Realloc.
// Allocation failure is not recoverable and should panic.
//
// Memory handed out by an Allocator never holds Go pointers: components that contain pointers are
// stored in typed memory managed by the runtime instead.
type Allocator interface {
	Alloc(size int) []byte
	Realloc(buf []byte, size int) []byte
	Free(buf []byte)
}

// HeapAllocator allocates from the Go heap. Free is a no-op and the garbage collector reclaims the
// memory.
type HeapAllocator struct{}

var _ Allocator = HeapAllocator{}

func (HeapAllocator) Alloc(size int) []byte {
	return make([]byte, size)
}

func (HeapAllocator) Realloc(buf []byte, size int) []byte {
	if size <= cap(buf) {
		old := len(buf)
		buf = buf[:size]
		if size > old {
			clear(buf[old:])
		}
		return buf
	}
	grown := make([]byte, size)
	copy(grown, buf)
	return grown
}

func (HeapAllocator) Free([]byte) {}
