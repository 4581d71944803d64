package ecs

import (
	"reflect"
	"slices"

	"github.com/argus-labs/fastecs/pkg/assert"
)

// CreateEntityEvent is raised after an entity is created, cloned, extended or reduced. Its
// components already hold their initial values.
type CreateEntityEvent struct {
	Entity *Entity
}

// DeleteEntityEvent is raised before an entity is destroyed.
type DeleteEntityEvent struct {
	Entity *Entity
}

// Subscription identifies a handler registered with Subscribe.
type Subscription struct {
	typ reflect.Type
	id  uint64
}

// EventManager dispatches events synchronously to the handlers subscribed to the event's type, in
// subscription order. It is not safe for concurrent use.
type EventManager struct {
	handlers map[reflect.Type]any // Event type -> *handlerList[E]
	nextID   uint64
	limit    int // Maximum number of distinct event types
}

type handler[E any] struct {
	id uint64
	fn func(*E)
}

type handlerList[E any] struct {
	handlers []handler[E]
}

// NewEventManager creates an event manager accepting at most limit distinct event types.
func NewEventManager(limit int) *EventManager {
	return &EventManager{
		handlers: make(map[reflect.Type]any),
		nextID:   1,
		limit:    limit,
	}
}

// Subscribe registers fn for events of type E.
func Subscribe[E any](em *EventManager, fn func(*E)) Subscription {
	typ := typeOf[E]()
	list, ok := em.handlers[typ].(*handlerList[E])
	if !ok {
		assert.That(len(em.handlers) < em.limit, "event manager exceeds %d event types", em.limit)
		list = &handlerList[E]{}
		em.handlers[typ] = list
	}

	id := em.nextID
	em.nextID++
	list.handlers = append(list.handlers, handler[E]{id: id, fn: fn})
	return Subscription{typ: typ, id: id}
}

// Unsubscribe removes one handler. It returns false if the handler is not registered.
func (em *EventManager) Unsubscribe(sub Subscription) bool {
	list, ok := em.handlers[sub.typ].(interface{ remove(id uint64) bool })
	if !ok {
		return false
	}
	return list.remove(sub.id)
}

// UnsubscribeAll removes every handler of events of type E.
func UnsubscribeAll[E any](em *EventManager) {
	delete(em.handlers, typeOf[E]())
}

// Trigger calls every handler of events of type E with the event.
func Trigger[E any](em *EventManager, event E) {
	list, ok := em.handlers[typeOf[E]()].(*handlerList[E])
	if !ok {
		return
	}
	for _, h := range list.handlers {
		h.fn(&event)
	}
}

// HandlerCount returns the number of handlers of events of type E.
func HandlerCount[E any](em *EventManager) int {
	list, ok := em.handlers[typeOf[E]()].(*handlerList[E])
	if !ok {
		return 0
	}
	return len(list.handlers)
}

func (l *handlerList[E]) remove(id uint64) bool {
	i := slices.IndexFunc(l.handlers, func(h handler[E]) bool { return h.id == id })
	if i < 0 {
		return false
	}
	l.handlers = slices.Delete(l.handlers, i, i+1)
	return true
}
