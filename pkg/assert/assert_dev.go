//go:build !release

// Package assert holds precondition checks that are only active in development builds. Building
// with `-tags release` turns every check into a no-op.
package assert

import "fmt"

// Enabled reports whether checks are compiled in. Guard checks whose condition is expensive to
// compute with it so release builds skip the work too.
const Enabled = true

// That panics with the formatted message if cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
