// Package pip adapts the pip command line for the updater: probing installed
// versions, checking for outdated packages, installing and upgrading, and
// batch-installing with a per-package summary.
//
// All process execution goes through the CommandRunner function type so tests
// can substitute canned results. Version lookups never fail: any probe error
// collapses to "not installed" (a nil version).
package pip
