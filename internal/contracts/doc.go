// Package contracts embeds the JSON schemas describing the pip-updates
// input, output and failure payloads and validates payloads against them.
//
// The schemas are compiled once at startup; Validate accepts values decoded
// by encoding/json (maps, slices, strings, float64, bool, nil).
package contracts
