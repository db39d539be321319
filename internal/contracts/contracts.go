package contracts

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	// Input describes the command payload accepted by the tool.
	Input = mustCompile("schemas/input.json")
	// Output describes the run report produced by the tool.
	Output = mustCompile("schemas/output.json")
	// Error describes the failure payload returned when a run cannot produce a report.
	Error = mustCompile("schemas/error.json")
)

// mustCompile loads an embedded schema and compiles it, panicking on
// programmer error (a schema that does not compile cannot ship).
func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read embedded schema %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("add schema resource %s: %v", name, err))
	}

	return compiler.MustCompile(name)
}

// Validate checks a decoded JSON payload against the provided schema.
func Validate(payload any, schema *jsonschema.Schema) error {
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("payload validation: %w", err)
	}

	return nil
}
