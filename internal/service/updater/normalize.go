package updater

import "strings"

// defaultPackages is the built-in package list used when the request is
// empty. Only entries with the recognized prefix survive the fallback.
//
//nolint:gochecknoglobals // Fixed default list by design.
var defaultPackages = []string{
	"x_4357_make_markdown_x",
	"x_4357_make_persistent_env_var_x",
	"x_4357_make_pypi_x",
	"x_4357_make_github_clones_x",
	"x_4357_make_pip_updates_x",
}

// recognizedPrefix filters the default list.
const recognizedPrefix = "x_"

// normalizePackages drops blanks, removes duplicates keeping the first
// occurrence, and substitutes the default list when nothing remains.
func normalizePackages(packages []string) []string {
	deduped := make([]string, 0, len(packages))
	seen := make(map[string]struct{}, len(packages))

	for _, pkg := range packages {
		if pkg == "" {
			continue
		}

		if _, dup := seen[pkg]; dup {
			continue
		}

		seen[pkg] = struct{}{}
		deduped = append(deduped, pkg)
	}

	if len(deduped) > 0 {
		return deduped
	}

	defaults := make([]string, 0, len(defaultPackages))

	for _, candidate := range defaultPackages {
		if strings.HasPrefix(candidate, recognizedPrefix) {
			defaults = append(defaults, candidate)
		}
	}

	return defaults
}

// resolveUseUser extracts the use_user override from the run context's
// publish options, tolerating bool and string flag shapes.
func resolveUseUser(rc *RunContext, defaultValue bool) bool {
	if rc == nil || rc.PublishOpts == nil {
		return defaultValue
	}

	switch override := rc.PublishOpts["use_user"].(type) {
	case bool:
		return override
	case string:
		switch strings.ToLower(strings.TrimSpace(override)) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	default:
		return defaultValue
	}
}

// flagValue coerces a loosely typed payload flag to a bool.
// Mirrors how the command payload is allowed to carry flags as booleans,
// strings or numbers.
func flagValue(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		default:
			return false
		}
	case float64:
		return value != 0
	case int:
		return value != 0
	default:
		return false
	}
}

// nonNilStrings copies a string slice, guaranteeing a non-nil value so the
// report marshals it as a JSON array rather than null.
func nonNilStrings(values []string) []string {
	out := make([]string, 0, len(values))

	return append(out, values...)
}

// nonNilVersions guarantees a non-nil version map for the report payload.
func nonNilVersions(values map[string]*string) map[string]*string {
	if values == nil {
		return map[string]*string{}
	}

	return values
}

// nonNilArtifacts guarantees a non-nil artifact map for the report payload.
func nonNilArtifacts(values map[string]map[string]any) map[string]map[string]any {
	if values == nil {
		return map[string]map[string]any{}
	}

	return values
}

// appendErrorEntry records an error in the report's errors list.
func appendErrorEntry(payload map[string]any, err error) {
	entries, _ := payload["errors"].([]any)
	entries = append(entries, map[string]any{
		"type":    errorTypeName(err),
		"message": err.Error(),
	})
	payload["errors"] = entries
}
