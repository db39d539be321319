package updater

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strptr(s string) *string {
	return &s
}

// TestCollectMismatches checks that only pinned packages are compared and
// that the package list order is preserved.
func TestCollectMismatches(t *testing.T) {
	t.Parallel()

	packages := []string{"alpha", "beta", "gamma", "delta"}
	expected := map[string]*string{
		"alpha": strptr("1.0"),
		"beta":  strptr("2.0"),
		"gamma": nil,
		"delta": strptr("4.0"),
	}
	observed := map[string]*string{
		"alpha": strptr("1.0"),
		"beta":  strptr("1.9"),
		"gamma": strptr("0.1"),
		"delta": nil,
	}

	mismatches := collectMismatches(packages, expected, observed)

	require.Equal(t, []Mismatch{
		{Package: "beta", Expected: "2.0", Observed: strptr("1.9")},
		{Package: "delta", Expected: "4.0", Observed: nil},
	}, mismatches)
}

// TestCollectMismatchesIgnoresUnlistedPins ensures a published version for a
// package outside the package list is never flagged.
func TestCollectMismatchesIgnoresUnlistedPins(t *testing.T) {
	t.Parallel()

	mismatches := collectMismatches(
		[]string{"alpha"},
		map[string]*string{"alpha": strptr("1.0"), "stray": strptr("9.9")},
		map[string]*string{"alpha": strptr("1.0")},
	)

	require.Empty(t, mismatches)
}

// TestMismatchEntries checks report rendering, including the null observed
// version for a missing package.
func TestMismatchEntries(t *testing.T) {
	t.Parallel()

	entries := mismatchEntries([]Mismatch{
		{Package: "alpha", Expected: "1.0", Observed: strptr("0.9")},
		{Package: "beta", Expected: "2.0", Observed: nil},
	})

	require.Equal(t, []any{
		map[string]any{"package": "alpha", "expected": "1.0", "observed": "0.9"},
		map[string]any{"package": "beta", "expected": "2.0", "observed": nil},
	}, entries)

	require.Empty(t, mismatchEntries(nil))
}

func TestMismatchedPackages(t *testing.T) {
	t.Parallel()

	names := mismatchedPackages([]Mismatch{
		{Package: "beta", Expected: "2.0"},
		{Package: "alpha", Expected: "1.0"},
	})

	require.Equal(t, []string{"beta", "alpha"}, names)
}
