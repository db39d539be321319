package updater

import (
	"context"
	"encoding/hex"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/x4357/pip-updates/internal/config"
	"github.com/x4357/pip-updates/internal/logger"
	"github.com/x4357/pip-updates/internal/pip"
	"github.com/x4357/pip-updates/internal/report"
)

// ToolName identifies this tool in command payloads and run reports.
const ToolName = "x_make_pip_updates_x"

// scriptFilename is the filename of the external installer script.
const scriptFilename = "x_cls_make_pip_updates_x.py"

// scriptDirCandidates are the directories probed for the installer script,
// in preference order, first under the base path and then under the working
// directory. Process-wide constants, not configuration.
//
//nolint:gochecknoglobals // Fixed candidate list by design.
var scriptDirCandidates = []string{
	"x_4357_make_pip_updates_x",
	"x_make_pip_updates_x",
}

// ReportWriter persists a finished (or failed) run report.
type ReportWriter interface {
	Write(ctx context.Context, tool string, payload map[string]any) (string, error)
}

// RunContext carries optional execution flags from the command payload.
type RunContext struct {
	// DryRun and Verbose are accepted for contract compatibility and logged;
	// the orchestrator itself always executes for real.
	DryRun  bool
	Verbose bool
	// PublishOpts is a tolerant bag of publishing options; use_user may
	// arrive as a bool or a string flag.
	PublishOpts map[string]any
}

// Options are inputs accepted by the updater entry point.
type Options struct {
	// Packages is the requested package list; empty falls back to the
	// built-in default list.
	Packages []string
	// RepoParentRoot is the base directory for installer-script resolution.
	RepoParentRoot string
	// PublishedVersions maps packages to their published versions.
	// A nil version means "no pin, install loosely".
	PublishedVersions map[string]*string
	// PublishedArtifacts maps packages to artifact metadata, used only as a
	// presence check gating post-install verification.
	PublishedArtifacts map[string]map[string]any
	// Context carries optional execution flags.
	Context *RunContext
	// ClonerTargetDir overrides RepoParentRoot as the script base path.
	ClonerTargetDir string
	// Factory constructs the primary installer runner; nil means a no-op
	// runner that reports success without installing.
	Factory RunnerFactory
	// Settings are tool settings; nil means defaults.
	Settings *config.Settings
	// CommandRunner executes subprocesses; nil means pip.Exec.
	CommandRunner pip.CommandRunner
	// Writer persists the run report; nil means a file writer under the
	// configured report directory.
	Writer ReportWriter
}

// run holds the mutable state of a single orchestration.
// The payload maps are mutated in place as each phase completes and are
// persisted exactly once when the run leaves the orchestrator.
type run struct {
	opts     *Options
	settings *config.Settings
	cmdRun   pip.CommandRunner
	factory  RunnerFactory
	writer   ReportWriter
	probe    *pip.Runner

	runID      string
	startedAt  time.Time
	scriptPath string
	packages   []string
	useUser    bool

	payload   map[string]any
	execution map[string]any
	result    map[string]any
}

// Run executes the whole update orchestration and returns the path of the
// persisted run report. The report is written on every exit path; when the
// returned error is non-nil the report carries the error and status "error".
func Run(ctx context.Context, opts *Options) (reportPath string, err error) {
	r := newRun(opts)

	ctx = logger.WithName(ctx, "pip-updates")
	ctx = logger.WithKV(ctx, "run_id", r.runID)

	r.warnOnConcurrentInstalls(ctx)

	defer func() {
		path, writeErr := r.finalize(ctx, err)

		reportPath = path
		if err == nil && writeErr != nil {
			err = writeErr
		}
	}()

	return "", r.perform(ctx)
}

// perform runs the update phases, short-circuiting to a skipped result when
// normalization leaves nothing to install.
func (r *run) perform(ctx context.Context) error {
	if len(r.packages) == 0 {
		logger.Info(ctx, "No published packages to update; skipping pip-updates step")

		r.result["status"] = "skipped"
		r.result["reason"] = "no packages after normalization"

		return nil
	}

	return r.execute(ctx)
}

// newRun initializes per-run state and the report payload skeleton.
func newRun(opts *Options) *run {
	settings := opts.Settings
	if settings == nil {
		settings = config.Default()
	}

	cmdRun := opts.CommandRunner
	if cmdRun == nil {
		cmdRun = pip.Exec
	}

	factory := opts.Factory
	if factory == nil {
		factory = NoopFactory
	}

	writer := opts.Writer
	if writer == nil {
		writer = report.NewWriter(settings.ReportDirectory)
	}

	probe := pip.NewRunner(settings.PythonExecutable, false)
	probe.Run = cmdRun

	id := uuid.New()

	r := &run{
		opts:      opts,
		settings:  settings,
		cmdRun:    cmdRun,
		factory:   factory,
		writer:    writer,
		probe:     probe,
		runID:     hex.EncodeToString(id[:]),
		startedAt: time.Now().UTC(),
		packages:  normalizePackages(opts.Packages),
		useUser:   resolveUseUser(opts.Context, false),
	}

	r.scriptPath = resolveScriptPath(r.basePath())

	inputs := map[string]any{
		"requested_packages":  nonNilStrings(opts.Packages),
		"normalized_packages": nonNilStrings(r.packages),
		"use_user_flag":       r.useUser,
		"repo_parent_root":    opts.RepoParentRoot,
		"published_versions":  nonNilVersions(opts.PublishedVersions),
		"published_artifacts": nonNilArtifacts(opts.PublishedArtifacts),
	}

	r.execution = map[string]any{
		"script_path":      r.scriptPath,
		"script_available": fileExists(r.scriptPath),
	}
	r.result = map[string]any{}
	r.payload = map[string]any{
		"run_id":     r.runID,
		"started_at": r.startedAt.Format(time.RFC3339),
		"inputs":     inputs,
		"execution":  r.execution,
		"result":     r.result,
	}

	return r
}

// basePath resolves the script base directory, preferring the cloner's
// target directory over the repo parent root.
func (r *run) basePath() string {
	if r.opts.ClonerTargetDir != "" {
		return r.opts.ClonerTargetDir
	}

	return r.opts.RepoParentRoot
}

// finalize stamps terminal fields and persists the report exactly once.
// It runs on every exit path of Run, errors included.
func (r *run) finalize(ctx context.Context, runErr error) (string, error) {
	status := "success"
	if runErr != nil {
		status = "error"
		appendErrorEntry(r.payload, runErr)
	}

	completed := time.Now().UTC()

	r.payload["status"] = status
	r.payload["completed_at"] = completed.Format(time.RFC3339)
	r.payload["duration_seconds"] = roundSeconds(completed.Sub(r.startedAt))

	path, err := r.writer.Write(ctx, ToolName, r.payload)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to persist run report", "error", err)
		return "", err
	}

	return path, nil
}

// warnOnConcurrentInstalls surfaces other visible pip processes. Concurrent
// runs mutating the same interpreter state are an accepted limitation; this
// only makes the race visible to operators.
func (r *run) warnOnConcurrentInstalls(ctx context.Context) {
	names, err := pip.OtherInstallProcesses()
	if err != nil || len(names) == 0 {
		return
	}

	logger.WarnKV(ctx, "Other pip processes are running; results may race", "processes", names)
}

// probeAll captures installed versions for every package in order.
func (r *run) probeAll(ctx context.Context, heading string) map[string]*string {
	logger.Info(ctx, heading)

	versions := make(map[string]*string, len(r.packages))

	for _, pkg := range r.packages {
		v := r.probe.InstalledVersion(ctx, pkg)
		versions[pkg] = v

		if v == nil {
			logger.Infof(ctx, "%s: not installed", pkg)
		} else {
			logger.Infof(ctx, "%s: %s", pkg, *v)
		}
	}

	return versions
}

// printSummary logs the final per-package outcome and reports whether any
// pinned package still deviates from its expected version.
func (r *run) printSummary(ctx context.Context, finalVersions map[string]*string, retryCode *int) bool {
	logger.Info(ctx, "Summary:")

	anyFailures := false

	for _, pkg := range r.summaryOrder() {
		expected := r.opts.PublishedVersions[pkg]
		current := finalVersions[pkg]

		if expected == nil {
			logger.Infof(ctx, "- %s: current: %s", pkg, renderVersion(current))
			continue
		}

		if current != nil && *current == *expected {
			logger.Infof(ctx, "- %s==%s: OK | current: %s", pkg, *expected, *current)
		} else {
			anyFailures = true

			logger.Infof(ctx, "- %s==%s: FAIL | current: %s", pkg, *expected, renderVersion(current))
		}
	}

	if retryCode != nil && *retryCode != 0 && anyFailures {
		logger.Errorf(ctx, "Retry pip-updates failed with exit code %d", *retryCode)
	}

	return anyFailures
}

// summaryOrder lists the packages to summarize: the published map when it
// has entries (sorted for stable output), else the normalized package list.
func (r *run) summaryOrder() []string {
	if len(r.opts.PublishedVersions) == 0 {
		return r.packages
	}

	names := make([]string, 0, len(r.opts.PublishedVersions))
	for name := range r.opts.PublishedVersions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// resolveScriptPath returns the first existing script candidate, or the
// first candidate overall when none exist (recorded as the unavailable path).
func resolveScriptPath(basePath string) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	candidates := make([]string, 0, 2*len(scriptDirCandidates))
	for _, root := range []string{basePath, cwd} {
		for _, dir := range scriptDirCandidates {
			candidates = append(candidates, filepath.Join(root, dir, scriptFilename))
		}
	}

	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}

	return candidates[0]
}

// fileExists reports whether the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// renderVersion renders an optional version for log output.
func renderVersion(v *string) string {
	if v == nil {
		return "not installed"
	}

	return *v
}

// roundSeconds converts a duration to seconds rounded to milliseconds.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
