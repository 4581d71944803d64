package ecs

import (
	"github.com/argus-labs/fastecs/pkg/assert"
	"github.com/kelindar/bitmap"
)

// Query selects the storages whose archetype contains every listed component. The listed order is
// the order of the component accessors in Row and Batch.
type Query struct {
	ids  []ComponentTypeID
	mask bitmap.Bitmap
}

// NewQuery creates a query over the given components. An empty query matches every archetype.
func NewQuery(ids ...ComponentTypeID) Query {
	q := Query{ids: append([]ComponentTypeID(nil), ids...)}
	for _, id := range ids {
		q.mask.Set(uint32(id))
	}
	return q
}

// Components returns the queried component IDs. The slice must not be modified.
func (q Query) Components() []ComponentTypeID { return q.ids }

// Matches reports whether the archetype contains every queried component.
func (q Query) Matches(a *Archetype) bool {
	return a.contains(q.mask)
}

// columns returns the archetype position of every queried component.
func (q Query) columns(a *Archetype) []int {
	positions := make([]int, len(q.ids))
	for i, id := range q.ids {
		p, ok := a.Index(id)
		assert.That(ok, "archetype %#x does not contain component %d", a.id, id)
		positions[i] = p
	}
	return positions
}
