package testutils

// Vector3 is the coordinate type of the spatial test components.
type Vector3 struct {
	X, Y, Z float32
}

// Add returns the sum of two vectors.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns the vector multiplied by s.
func (v Vector3) Scale(s float32) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

type Profile struct {
	Age   int32
	Level uint16
}

func (Profile) Name() string {
	return "profile"
}

// Transform defaults to unit scale.
type Transform struct {
	Position Vector3
	Scale    Vector3
	Yaw      float32
}

func (Transform) Name() string {
	return "transform"
}

func (t *Transform) SetDefaults() {
	t.Scale = Vector3{X: 1, Y: 1, Z: 1}
}

// DefaultTransform returns the default-constructed Transform.
func DefaultTransform() Transform {
	var t Transform
	t.SetDefaults()
	return t
}

type Velocity struct {
	Direction Vector3
	Magnitude float32
}

func (Velocity) Name() string {
	return "velocity"
}

// Health defaults to full health.
type Health struct {
	Current int32
	Max     int32
}

func (Health) Name() string {
	return "health"
}

func (h *Health) SetDefaults() {
	h.Current = 100
	h.Max = 100
}

// Tag is a zero-sized marker component.
type Tag struct{}

func (Tag) Name() string {
	return "tag"
}

// Flag is a one-byte component that breaks the alignment of the columns laid out after it.
type Flag struct {
	On bool
}

func (Flag) Name() string {
	return "flag"
}

// Counter has 8-byte alignment.
type Counter struct {
	Value uint64
	Ticks [3]uint64
}

func (Counter) Name() string {
	return "counter"
}

// Label holds a Go pointer and is stored in typed memory.
type Label struct {
	Text string
	Tags []string
}

func (Label) Name() string {
	return "label"
}
