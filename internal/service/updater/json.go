package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/x4357/pip-updates/internal/config"
	"github.com/x4357/pip-updates/internal/contracts"
	"github.com/x4357/pip-updates/internal/logger"
)

// MainJSON executes the update flow behind the JSON contract: the payload is
// validated against the input schema, the run executes, the persisted report
// is read back and validated against the output schema, and that report is
// returned. Any failure along the way yields the failure payload instead.
func MainJSON(ctx context.Context, payload map[string]any, settings *config.Settings, factory RunnerFactory) map[string]any {
	if err := contracts.Validate(payload, contracts.Input); err != nil {
		return failurePayload("input payload failed validation", map[string]any{
			"error": err.Error(),
		})
	}

	params := parametersFrom(payload)

	repoParentRoot, _ := params["repo_parent_root"].(string)
	if repoParentRoot == "" {
		return failurePayload("repo_parent_root is required", map[string]any{
			"field": "repo_parent_root",
		})
	}

	opts := &Options{
		Packages:           coercePackages(params["packages"]),
		RepoParentRoot:     repoParentRoot,
		PublishedVersions:  coercePublishedVersions(params["published_versions"]),
		PublishedArtifacts: coercePublishedArtifacts(params["published_artifacts"]),
		Context:            coerceRunContext(params["context"]),
		ClonerTargetDir:    coerceClonerTargetDir(params["cloner"]),
		Factory:            factory,
		Settings:           settings,
	}

	if opts.Context != nil && opts.Context.DryRun {
		logger.Info(ctx, "dry_run requested; the orchestrator executes installs regardless")
	}

	reportPath, err := Run(ctx, opts)
	if err != nil {
		return failurePayload("pip updates execution failed", map[string]any{
			"type":    errorTypeName(err),
			"message": err.Error(),
		})
	}

	contents, err := os.ReadFile(reportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return failurePayload("pip updates report not found", map[string]any{
				"report_path": reportPath,
			})
		}

		return failurePayload("pip updates report malformed", map[string]any{
			"message": err.Error(),
		})
	}

	var result map[string]any
	if err = json.Unmarshal(contents, &result); err != nil {
		return failurePayload("pip updates report malformed", map[string]any{
			"message": err.Error(),
		})
	}

	if err = contracts.Validate(result, contracts.Output); err != nil {
		return failurePayload("generated output failed schema validation", map[string]any{
			"error": err.Error(),
		})
	}

	return result
}

// failurePayload builds the schema-shaped failure response. Validation of
// the response itself is best-effort; a failure to self-validate must not
// mask the original failure.
func failurePayload(message string, details map[string]any) map[string]any {
	payload := map[string]any{
		"status":  "failure",
		"message": message,
	}
	if len(details) > 0 {
		payload["details"] = details
	}

	_ = contracts.Validate(payload, contracts.Error)

	return payload
}

// parametersFrom extracts the parameters object, tolerating absence.
func parametersFrom(payload map[string]any) map[string]any {
	if params, ok := payload["parameters"].(map[string]any); ok {
		return params
	}

	return map[string]any{}
}

// coercePackages converts a decoded JSON array to package names,
// dropping empty entries. Anything that is not an array yields nil.
func coercePackages(value any) []string {
	entries, ok := value.([]any)
	if !ok {
		return nil
	}

	packages := make([]string, 0, len(entries))

	for _, entry := range entries {
		if name, ok := entry.(string); ok && name != "" {
			packages = append(packages, name)
		}
	}

	return packages
}

// coercePublishedVersions converts a decoded JSON object to the version
// map. Empty or non-string versions collapse to nil ("no pin").
func coercePublishedVersions(value any) map[string]*string {
	entries, ok := value.(map[string]any)
	if !ok {
		return map[string]*string{}
	}

	versions := make(map[string]*string, len(entries))

	for name, entry := range entries {
		if v, ok := entry.(string); ok && v != "" {
			versions[name] = &v
		} else {
			versions[name] = nil
		}
	}

	return versions
}

// coercePublishedArtifacts keeps only object-valued artifact entries.
func coercePublishedArtifacts(value any) map[string]map[string]any {
	entries, ok := value.(map[string]any)
	if !ok {
		return map[string]map[string]any{}
	}

	artifacts := make(map[string]map[string]any, len(entries))

	for name, entry := range entries {
		if meta, ok := entry.(map[string]any); ok {
			artifacts[name] = meta
		}
	}

	return artifacts
}

// coerceRunContext converts the optional context object.
func coerceRunContext(value any) *RunContext {
	entries, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	rc := &RunContext{
		DryRun:  flagValue(entries["dry_run"]),
		Verbose: flagValue(entries["verbose"]),
	}

	if opts, ok := entries["publish_opts"].(map[string]any); ok {
		rc.PublishOpts = opts
	}

	return rc
}

// coerceClonerTargetDir extracts the optional cloner target directory.
func coerceClonerTargetDir(value any) string {
	entries, ok := value.(map[string]any)
	if !ok {
		return ""
	}

	target, _ := entries["target_dir"].(string)

	return target
}

// errorTypeName renders a Go error's dynamic type for the errors list,
// the closest analog to an exception class name.
func errorTypeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
