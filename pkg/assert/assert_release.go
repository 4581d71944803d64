//go:build release

package assert

const Enabled = false

func That(bool, string, ...any) {} //nolint:goprintffuncname // it's ok
