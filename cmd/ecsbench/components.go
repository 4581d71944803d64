package main

type Vec3 struct {
	X, Y, Z float32
}

type Position struct {
	Vec3
}

func (Position) Name() string { return "position" }

type Velocity struct {
	Vec3
}

func (Velocity) Name() string { return "velocity" }

type Profile struct {
	Age int32
}

func (Profile) Name() string { return "profile" }

// Stats is the per-worker accumulator passed to the movement job as its local argument.
type Stats struct {
	Moved int
	_     [56]byte // Keeps accumulators of different workers on separate cache lines
}
