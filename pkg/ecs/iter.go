package ecs

import (
	"github.com/argus-labs/fastecs/pkg/assert"
)

// Iterable is a set of storages that can be iterated: a *Context or a *World.
type Iterable interface {
	ForEach(q Query, fn EachFunc)
	ForEachBatch(q Query, fn BatchFunc)

	forEach(q Query, fn EachFunc, local any)
	forEachBatch(q Query, fn BatchFunc, local any)
	registryRef() *componentRegistry
}

var (
	_ Iterable = (*Context)(nil)
	_ Iterable = (*World)(nil)
)

func mustID[T any](it Iterable) ComponentTypeID {
	id, ok := it.registryRef().lookup(typeOf[T]())
	assert.That(ok, "component type %s is not registered", typeOf[T]())
	return id
}

// Each1 calls fn for every entity that has an A.
func Each1[A any](it Iterable, fn func(e *Entity, a *A)) {
	q := NewQuery(mustID[A](it))
	it.ForEach(q, func(e *Entity, row Row) {
		fn(e, (*A)(row.Ptr(0)))
	})
}

// Each2 calls fn for every entity that has an A and a B.
func Each2[A, B any](it Iterable, fn func(e *Entity, a *A, b *B)) {
	q := NewQuery(mustID[A](it), mustID[B](it))
	it.ForEach(q, func(e *Entity, row Row) {
		fn(e, (*A)(row.Ptr(0)), (*B)(row.Ptr(1)))
	})
}

// Each3 calls fn for every entity that has an A, a B and a C.
func Each3[A, B, C any](it Iterable, fn func(e *Entity, a *A, b *B, c *C)) {
	q := NewQuery(mustID[A](it), mustID[B](it), mustID[C](it))
	it.ForEach(q, func(e *Entity, row Row) {
		fn(e, (*A)(row.Ptr(0)), (*B)(row.Ptr(1)), (*C)(row.Ptr(2)))
	})
}

// Query1 returns the query over component type A.
func Query1[A any](w *World) Query {
	return NewQuery(mustID[A](w))
}

// Query2 returns the query over component types A and B.
func Query2[A, B any](w *World) Query {
	return NewQuery(mustID[A](w), mustID[B](w))
}

// Query3 returns the query over component types A, B and C.
func Query3[A, B, C any](w *World) Query {
	return NewQuery(mustID[A](w), mustID[B](w), mustID[C](w))
}
