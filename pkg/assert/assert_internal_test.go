//go:build !release

package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThat(t *testing.T) {
	t.Parallel()

	require.True(t, Enabled)
	require.NotPanics(t, func() { That(true, "never") })
	require.PanicsWithValue(t, "assertion failed: slot 3 out of range", func() {
		That(false, "slot %d out of range", 3)
	})
}
