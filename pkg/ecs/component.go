package ecs

import (
	"reflect"
	"unsafe"

	"github.com/argus-labs/fastecs/pkg/assert"
	"github.com/cespare/xxhash/v2"
	"github.com/rotisserie/eris"
)

// Component is the interface that all registered component types implement.
// Components are pure data containers that are stored in chunk columns.
type Component interface { //nolint:iface // We may add more methods in the future.
	// Name returns a unique string identifier for the component type. It feeds the archetype
	// identity, so it has to be consistent across program executions.
	Name() string
}

// Defaulter is implemented by components whose default value is not the zero value. SetDefaults is
// called on zeroed memory whenever the engine default-constructs the component.
type Defaulter interface {
	SetDefaults()
}

// Destroyer is implemented by components that release resources when their entity is destroyed.
type Destroyer interface {
	Destroy()
}

// ComponentTypeID is the identifier a world assigns to a component type at registration.
type ComponentTypeID uint32

// ComponentDescriptor describes how the engine stores one component type. Descriptors are immutable
// once registered.
type ComponentDescriptor struct {
	ID    ComponentTypeID
	Name  string
	Size  uintptr
	Align uintptr
	Type  reflect.Type // nil for raw descriptors

	Init func(dst unsafe.Pointer)      // Default-constructs the component in place
	Drop func(dst unsafe.Pointer)      // Destroys the component in place
	Copy func(dst, src unsafe.Pointer) // Copy-assigns src to dst

	hash     uint64 // Contribution to the archetype identity
	pointers bool   // Whether the memory holds Go pointers and must live in typed memory
}

// componentRegistry manages component type registration and lookup.
type componentRegistry struct {
	descriptors []*ComponentDescriptor           // Component ID -> descriptor
	byName      map[string]ComponentTypeID       // Component name -> component ID
	byType      map[reflect.Type]ComponentTypeID // Go type -> component ID
	limit       int                              // Maximum number of component types
}

// newComponentRegistry creates a new component registry.
func newComponentRegistry(limit int) componentRegistry {
	return componentRegistry{
		descriptors: make([]*ComponentDescriptor, 0),
		byName:      make(map[string]ComponentTypeID),
		byType:      make(map[reflect.Type]ComponentTypeID),
		limit:       limit,
	}
}

// register adds a descriptor and returns its ID. Registering a name that already exists returns the
// existing ID as long as it describes the same Go type.
func (r *componentRegistry) register(desc ComponentDescriptor) (ComponentTypeID, error) {
	if desc.Name == "" {
		return 0, eris.New("component name cannot be empty")
	}

	if cid, exists := r.byName[desc.Name]; exists {
		if r.descriptors[cid].Type != desc.Type {
			return 0, eris.Errorf("component name %s is already registered to a different type", desc.Name)
		}
		return cid, nil
	}

	if len(r.descriptors) >= r.limit {
		return 0, eris.Wrapf(ErrComponentLimit, "cannot register %s, limit is %d", desc.Name, r.limit)
	}
	if desc.Align == 0 || desc.Align&(desc.Align-1) != 0 {
		return 0, eris.Errorf("component %s alignment %d is not a power of two", desc.Name, desc.Align)
	}

	cid := ComponentTypeID(len(r.descriptors)) //nolint:gosec // bounded by limit
	d := desc
	d.ID = cid
	d.hash = xxhash.Sum64String(desc.Name)
	if d.Init == nil {
		d.Init = func(dst unsafe.Pointer) { clear(bytesAt(dst, d.Size)) }
	}
	if d.Drop == nil {
		d.Drop = func(unsafe.Pointer) {}
	}
	if d.Copy == nil {
		d.Copy = func(dst, src unsafe.Pointer) { copy(bytesAt(dst, d.Size), bytesAt(src, d.Size)) }
	}

	r.descriptors = append(r.descriptors, &d)
	r.byName[d.Name] = cid
	if d.Type != nil {
		r.byType[d.Type] = cid
	}
	assert.That(len(r.descriptors) == len(r.byName), "component ids don't match number of components")

	return cid, nil
}

// get returns the descriptor of a registered component.
func (r *componentRegistry) get(id ComponentTypeID) *ComponentDescriptor {
	assert.That(int(id) < len(r.descriptors), "component %d is not registered", id)
	return r.descriptors[id]
}

// lookup returns the ID registered for a Go type.
func (r *componentRegistry) lookup(typ reflect.Type) (ComponentTypeID, bool) {
	id, ok := r.byType[typ]
	return id, ok
}

// -------------------------------------------------------------------------------------------------
// Public registration API
// -------------------------------------------------------------------------------------------------

// Register registers the component type T with the world and returns its ID. Registering the same
// type twice returns the same ID.
func Register[T Component](w *World) (ComponentTypeID, error) {
	typ := typeOf[T]()
	if id, ok := w.registry.lookup(typ); ok {
		return id, nil
	}

	var zero T
	_, defaults := any(&zero).(Defaulter)
	_, destroys := any(&zero).(Destroyer)

	desc := ComponentDescriptor{
		Name:     zero.Name(),
		Size:     typ.Size(),
		Align:    uintptr(typ.Align()),
		Type:     typ,
		pointers: hasPointers(typ),
		Init: func(dst unsafe.Pointer) {
			c := (*T)(dst)
			*c = zero
			if defaults {
				any(c).(Defaulter).SetDefaults()
			}
		},
		Drop: func(dst unsafe.Pointer) {
			c := (*T)(dst)
			if destroys {
				any(c).(Destroyer).Destroy()
			}
			*c = zero
		},
		Copy: func(dst, src unsafe.Pointer) {
			*(*T)(dst) = *(*T)(src)
		},
	}

	id, err := w.registry.register(desc)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to register component %s", desc.Name)
	}
	w.logger.Debug().Str("component", desc.Name).Uint32("id", uint32(id)).
		Uint64("size", uint64(desc.Size)).Msg("registered component")
	return id, nil
}

// MustRegister is like Register but panics on error. It is meant for program setup.
func MustRegister[T Component](w *World) ComponentTypeID {
	id, err := Register[T](w)
	if err != nil {
		panic(eris.ToString(err, true))
	}
	return id
}

// RegisterDescriptor registers a raw component described only by its size, alignment and function
// table. Raw components must not hold Go pointers. Missing functions default to zeroing and byte
// copies.
func RegisterDescriptor(w *World, desc ComponentDescriptor) (ComponentTypeID, error) {
	desc.Type = nil
	desc.pointers = false
	id, err := w.registry.register(desc)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to register component %s", desc.Name)
	}
	return id, nil
}

// TypeID returns the ID of a registered component type.
func TypeID[T any](w *World) (ComponentTypeID, error) {
	typ := typeOf[T]()
	id, ok := w.registry.lookup(typ)
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "component type %s", typ)
	}
	return id, nil
}

// Descriptor returns the descriptor of a registered component.
func (w *World) Descriptor(id ComponentTypeID) *ComponentDescriptor {
	return w.registry.get(id)
}

// -------------------------------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------------------------------

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// hasPointers reports whether values of typ contain memory the garbage collector has to scan.
func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() { //nolint:exhaustive // every other kind holds pointers
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())
	case reflect.Struct:
		for i := range typ.NumField() {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func bytesAt(ptr unsafe.Pointer, size uintptr) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}
