package updater

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x4357/pip-updates/internal/config"
)

// testSettings builds settings whose interpreter does not exist, so every
// subprocess attempt fails fast, and whose reports land in a temp directory.
func testSettings(t *testing.T) *config.Settings {
	t.Helper()

	return &config.Settings{
		PythonExecutable: filepath.Join(t.TempDir(), "missing-python"),
		ReportDirectory:  t.TempDir(),
		LogLevel:         "info",
	}
}

func commandPayload(repoParentRoot string) map[string]any {
	return map[string]any{
		"command": ToolName,
		"parameters": map[string]any{
			"packages":           []any{"pkga"},
			"repo_parent_root":   repoParentRoot,
			"published_versions": map[string]any{"pkga": "2.0"},
			"published_artifacts": map[string]any{
				"pkga": map[string]any{"main": "pkga-2.0-py3-none-any.whl"},
			},
		},
	}
}

// TestMainJSONRejectsInvalidInput ensures a payload that fails the input
// schema yields the failure payload without executing anything.
func TestMainJSONRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{name: "missing parameters", payload: map[string]any{"command": ToolName}},
		{name: "wrong command", payload: map[string]any{
			"command":    "some_other_tool",
			"parameters": commandPayload(t.TempDir())["parameters"],
		}},
		{name: "empty payload", payload: map[string]any{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := MainJSON(context.Background(), tt.payload, testSettings(t), nil)

			require.Equal(t, "failure", result["status"])
			require.Equal(t, "input payload failed validation", result["message"])

			details, ok := result["details"].(map[string]any)
			require.True(t, ok)
			require.Contains(t, details, "error")
		})
	}
}

// TestMainJSONFullRoundtrip drives a complete run through the contract
// boundary: the report is persisted, read back and validated. With no usable
// interpreter every install fails, so the result asks for attention while
// the run itself succeeds.
func TestMainJSONFullRoundtrip(t *testing.T) {
	t.Parallel()

	result := MainJSON(context.Background(), commandPayload(t.TempDir()), testSettings(t), nil)

	require.Equal(t, "success", result["status"])
	require.Equal(t, ToolName, result["tool"])

	runID, ok := result["run_id"].(string)
	require.True(t, ok)
	require.Len(t, runID, 32)

	inner, ok := result["result"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "attention", inner["status"])
	require.Equal(t, true, inner["any_failures"])
	require.Equal(t, false, inner["used_script"])
	require.Equal(t, true, inner["fallback_used"])

	require.Equal(t, map[string]any{
		"status": "performed",
		"detail": "metadata validated; deep verification not implemented",
	}, inner["verification"])
}

// TestMainJSONVerificationReportsMissingMetadata ensures a package without
// artifact metadata shows up in the verification block of the returned
// report, sorted by name.
func TestMainJSONVerificationReportsMissingMetadata(t *testing.T) {
	t.Parallel()

	payload := commandPayload(t.TempDir())

	params, ok := payload["parameters"].(map[string]any)
	require.True(t, ok)
	params["published_artifacts"] = map[string]any{}

	result := MainJSON(context.Background(), payload, testSettings(t), nil)
	require.Equal(t, "success", result["status"])

	inner, ok := result["result"].(map[string]any)
	require.True(t, ok)

	require.Equal(t, map[string]any{
		"status":  "skipped",
		"reason":  "missing artifact metadata",
		"missing": []any{"pkga"},
	}, inner["verification"])
}

// TestMainJSONRunFailure covers the failure payload for a fatally aborted
// run: the primary installer reports cancellation, which is not recoverable.
func TestMainJSONRunFailure(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeScript(t, base)

	payload := commandPayload(base)

	factory := func(FactoryConfig) (ScriptRunner, error) {
		return failingRunner{err: context.Canceled}, nil
	}

	result := MainJSON(context.Background(), payload, testSettings(t), factory)

	require.Equal(t, "failure", result["status"])
	require.Equal(t, "pip updates execution failed", result["message"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, context.Canceled.Error(), details["message"])
}

func TestCoercePackages(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "b"}, coercePackages([]any{"a", "", "b", 7}))
	require.Nil(t, coercePackages("not a list"))
	require.Nil(t, coercePackages(nil))
}

func TestCoercePublishedVersions(t *testing.T) {
	t.Parallel()

	versions := coercePublishedVersions(map[string]any{
		"pinned":  "1.2.3",
		"loose":   nil,
		"empty":   "",
		"numeric": 7,
	})

	require.Len(t, versions, 4)
	require.Equal(t, strptr("1.2.3"), versions["pinned"])
	require.Nil(t, versions["loose"])
	require.Nil(t, versions["empty"])
	require.Nil(t, versions["numeric"])

	require.Empty(t, coercePublishedVersions(nil))
}

func TestCoercePublishedArtifacts(t *testing.T) {
	t.Parallel()

	artifacts := coercePublishedArtifacts(map[string]any{
		"good": map[string]any{"main": "good.whl"},
		"bad":  "not an object",
	})

	require.Len(t, artifacts, 1)
	require.Equal(t, map[string]any{"main": "good.whl"}, artifacts["good"])
}

func TestCoerceRunContext(t *testing.T) {
	t.Parallel()

	require.Nil(t, coerceRunContext(nil))
	require.Nil(t, coerceRunContext("not an object"))

	rc := coerceRunContext(map[string]any{
		"dry_run":      "yes",
		"verbose":      float64(1),
		"publish_opts": map[string]any{"use_user": true},
	})
	require.NotNil(t, rc)
	require.True(t, rc.DryRun)
	require.True(t, rc.Verbose)
	require.Equal(t, map[string]any{"use_user": true}, rc.PublishOpts)
}

func TestCoerceClonerTargetDir(t *testing.T) {
	t.Parallel()

	require.Empty(t, coerceClonerTargetDir(nil))
	require.Equal(t, "/work/clones", coerceClonerTargetDir(map[string]any{"target_dir": "/work/clones"}))
	require.Empty(t, coerceClonerTargetDir(map[string]any{"target_dir": 7}))
}

// TestErrorTypeName checks the dynamic type rendering used in error entries.
func TestErrorTypeName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "errors.errorString", errorTypeName(errors.New("plain")))
	require.Equal(t, "fmt.wrapError", errorTypeName(fmt.Errorf("wrapped: %w", errors.New("inner"))))
}

func TestFailurePayload(t *testing.T) {
	t.Parallel()

	payload := failurePayload("it broke", map[string]any{"hint": "badly"})
	require.Equal(t, "failure", payload["status"])
	require.Equal(t, "it broke", payload["message"])
	require.Equal(t, map[string]any{"hint": "badly"}, payload["details"])

	bare := failurePayload("it broke", nil)
	require.NotContains(t, bare, "details")
}
