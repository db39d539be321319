// Package report persists run reports as timestamped JSON files.
//
// A writer stamps each payload with the producing tool name and a
// generation timestamp before writing, so every report on disk is
// self-describing.
package report
