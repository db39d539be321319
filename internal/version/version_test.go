package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFullContainsComponents ensures the full string carries all build fields.
func TestFullContainsComponents(t *testing.T) {
	t.Parallel()

	full := Full()
	require.Contains(t, full, Version)
	require.Contains(t, full, Commit)
	require.Contains(t, full, BuildTime)
	require.Equal(t, Version, Short())
}
