package ecs

import (
	"github.com/argus-labs/fastecs/pkg/assert"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// World is the root of the engine. It owns the component registry, the archetype catalog and every
// context, and resolves global entity identifiers.
//
// A World is not safe for concurrent use. Structural changes (creating, extending, removing and
// releasing entities, creating archetypes and contexts) must not overlap with each other or with a
// running job.
type World struct {
	config    Config
	layout    IDLayout
	registry  componentRegistry
	catalog   *Catalog
	contexts  []*Context    // Context ID -> context, nil when free
	used      bitmap.Bitmap // Bitmap of the context IDs in use
	allocator Allocator
	events    *EventManager // Default event manager of new contexts
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewWorld creates a new World. Without WithConfig the limits are loaded from the environment.
func NewWorld(opts ...Option) (*World, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	var cfg Config
	if options.config != nil {
		cfg = *options.config
		if err := cfg.validate(); err != nil {
			return nil, eris.Wrap(err, "invalid world config")
		}
	} else {
		loaded, err := LoadConfig()
		if err != nil {
			return nil, eris.Wrap(err, "failed to load world config")
		}
		cfg = loaded
	}

	w := &World{
		config:    cfg,
		layout:    cfg.layout(),
		registry:  newComponentRegistry(cfg.MaxComponentTypes),
		contexts:  make([]*Context, cfg.MaxContexts),
		allocator: options.allocator,
		events:    NewEventManager(cfg.MaxEventTypes),
		logger:    options.logger,
		tracer:    options.tracer,
	}
	w.catalog = newCatalog(&w.registry, cfg, &w.logger)
	return w, nil
}

// Config returns the limits of the world.
func (w *World) Config() Config { return w.config }

// Layout returns the EntityID layout of the world.
func (w *World) Layout() IDLayout { return w.layout }

// Catalog returns the archetype catalog.
func (w *World) Catalog() *Catalog { return w.catalog }

// Logger returns the world's logger.
func (w *World) Logger() *zerolog.Logger { return &w.logger }

// CreateArchetype returns the archetype of the given components.
func (w *World) CreateArchetype(ids ...ComponentTypeID) *Archetype {
	return w.catalog.GetOrCreate(ids...)
}

// Events returns the world's event manager. Contexts created by the world notify it unless they
// are given another manager with Context.SetEventManager.
func (w *World) Events() *EventManager { return w.events }

// NewEventManager creates an event manager with the world's event type limit.
func (w *World) NewEventManager() *EventManager {
	return NewEventManager(w.config.MaxEventTypes)
}

// SetAllocator replaces the allocator used by storages created from now on. Existing storages keep
// the allocator they were created with. Passing nil restores the heap allocator.
func (w *World) SetAllocator(allocator Allocator) {
	if allocator == nil {
		allocator = HeapAllocator{}
	}
	w.allocator = allocator
}

// -------------------------------------------------------------------------------------------------
// Contexts
// -------------------------------------------------------------------------------------------------

// CreateContext creates a context with the lowest free context id.
func (w *World) CreateContext() (*Context, error) {
	for i := range w.config.MaxContexts {
		if w.used.Contains(uint32(i)) {
			continue
		}
		w.used.Set(uint32(i))
		ctx := newContext(w, ContextID(i))
		ctx.events = w.events
		w.contexts[i] = ctx
		w.logger.Debug().Int("context", i).Msg("created context")
		return ctx, nil
	}
	return nil, eris.Wrapf(ErrContextLimit, "all %d contexts are in use", w.config.MaxContexts)
}

// Context returns the live context with the id, or nil.
func (w *World) Context(id ContextID) *Context {
	if int(id) >= len(w.contexts) {
		return nil
	}
	return w.contexts[id]
}

// Contexts returns the live contexts in id order.
func (w *World) Contexts() []*Context {
	contexts := make([]*Context, 0, w.used.Count())
	w.used.Range(func(i uint32) {
		contexts = append(contexts, w.contexts[i])
	})
	return contexts
}

// ReleaseContext releases the context's entities and storages and frees its id for reuse.
func (w *World) ReleaseContext(ctx *Context) {
	assert.That(ctx.world == w, "context belongs to another world")
	assert.That(w.contexts[ctx.id] == ctx, "context %d is already released", ctx.id)

	ctx.Release()
	w.contexts[ctx.id] = nil
	w.used.Remove(uint32(ctx.id))
	w.logger.Debug().Uint8("context", uint8(ctx.id)).Msg("released context")
}

// Entity resolves a global identifier in whichever context it belongs to. It returns nil for
// identifiers of released contexts and stale identifiers.
func (w *World) Entity(id EntityID) *Entity {
	ctx := w.Context(id.Context())
	if ctx == nil {
		return nil
	}
	return ctx.Entity(id)
}

// Release releases every context.
func (w *World) Release() {
	for _, ctx := range w.Contexts() {
		w.ReleaseContext(ctx)
	}
}

// -------------------------------------------------------------------------------------------------
// Iteration
// -------------------------------------------------------------------------------------------------

// ForEach calls fn for every matching entity of every context.
func (w *World) ForEach(q Query, fn EachFunc) {
	w.forEach(q, fn, nil)
}

// ForEachBatch calls fn for every non-empty chunk of every matching storage of every context.
func (w *World) ForEachBatch(q Query, fn BatchFunc) {
	w.forEachBatch(q, fn, nil)
}

func (w *World) forEach(q Query, fn EachFunc, local any) {
	for _, ctx := range w.contexts {
		if ctx != nil {
			ctx.forEach(q, fn, local)
		}
	}
}

func (w *World) forEachBatch(q Query, fn BatchFunc, local any) {
	for _, ctx := range w.contexts {
		if ctx != nil {
			ctx.forEachBatch(q, fn, local)
		}
	}
}

// registryRef implements Iterable.
func (w *World) registryRef() *componentRegistry { return &w.registry }
