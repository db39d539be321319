package updater

// Mismatch records a pinned package whose observed version deviates from the
// published one after an install attempt.
type Mismatch struct {
	// Package is the distribution name.
	Package string
	// Expected is the published version.
	Expected string
	// Observed is the installed version, nil when not installed.
	Observed *string
}

// collectMismatches compares published versions against observed ones for
// every listed package. Packages without a published version are never
// flagged; there is nothing to check them against.
func collectMismatches(packages []string, expected map[string]*string, observed map[string]*string) []Mismatch {
	var mismatches []Mismatch

	for _, pkg := range packages {
		want := expected[pkg]
		if want == nil {
			continue
		}

		got := observed[pkg]
		if got == nil || *got != *want {
			mismatches = append(mismatches, Mismatch{
				Package:  pkg,
				Expected: *want,
				Observed: got,
			})
		}
	}

	return mismatches
}

// mismatchEntries renders mismatches for the report payload.
func mismatchEntries(mismatches []Mismatch) []any {
	entries := make([]any, 0, len(mismatches))

	for _, m := range mismatches {
		var observed any
		if m.Observed != nil {
			observed = *m.Observed
		}

		entries = append(entries, map[string]any{
			"package":  m.Package,
			"expected": m.Expected,
			"observed": observed,
		})
	}

	return entries
}

// mismatchedPackages lists the package names of the mismatches, in order.
func mismatchedPackages(mismatches []Mismatch) []string {
	names := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		names = append(names, m.Package)
	}

	return names
}
