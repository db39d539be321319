package pip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/x4357/pip-updates/internal/config"
	"github.com/x4357/pip-updates/internal/logger"
)

// CommandRunner executes an external command and returns its exit code,
// stdout and stderr. The command is expected to block until completion.
type CommandRunner func(ctx context.Context, name string, args ...string) (int, string, string, error)

// Exec is the default CommandRunner backed by os/exec.
// A non-zero exit status is reported through the code, not the error.
func Exec(ctx context.Context, name string, args ...string) (int, string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), stdout.String(), stderr.String(), nil
		}

		return -1, stdout.String(), stderr.String(), err
	}

	return 0, stdout.String(), stderr.String(), nil
}

// InstallResult captures one package refresh: the versions observed before
// and after the install command and the command's exit code.
type InstallResult struct {
	// Name is the package distribution name.
	Name string
	// Prev is the version before the install command, nil when not installed.
	Prev *string
	// Curr is the version after the install command, nil when not installed.
	Curr *string
	// Code is the pip exit code of the install command.
	Code int
}

// Runner invokes pip through a Python interpreter.
type Runner struct {
	// Python is the interpreter used for `-m pip` invocations.
	Python string
	// User makes installs target the user site (`--user`).
	User bool
	// Run executes commands; defaults to Exec.
	Run CommandRunner
}

// NewRunner creates a pip runner for the provided interpreter.
func NewRunner(python string, user bool) *Runner {
	if python == "" {
		python = config.DefaultPythonExecutable
	}

	return &Runner{
		Python: python,
		User:   user,
		Run:    Exec,
	}
}

// outdatedEntry is one record of `pip list --outdated --format=json`.
type outdatedEntry struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	LatestVersion string `json:"latest_version"`
}

// InstalledVersion probes the installed version of a package.
// Any failure (package absent, pip error, malformed output) yields nil.
func (r *Runner) InstalledVersion(ctx context.Context, name string) *string {
	code, out, _, err := r.Run(ctx, r.Python, "-m", "pip", "show", "--disable-pip-version-check", name)
	if err != nil || code != 0 {
		return nil
	}

	for _, line := range strings.Split(out, "\n") {
		value, found := strings.CutPrefix(strings.TrimSpace(line), "Version:")
		if !found {
			continue
		}

		if value = strings.TrimSpace(value); value != "" {
			return &value
		}
	}

	return nil
}

// IsOutdated reports whether pip lists the package as outdated.
// When both versions parse as semantic versions the latest must actually sort
// newer; otherwise pip's listing is trusted as-is.
func (r *Runner) IsOutdated(ctx context.Context, name string) bool {
	code, out, errOut, err := r.Run(ctx, r.Python,
		"-m", "pip", "list", "--outdated", "--format=json", "--disable-pip-version-check")
	if err != nil || code != 0 {
		logger.Warnf(ctx, "pip list failed (%d): %s", code, strings.TrimSpace(errOut))
		return false
	}

	var entries []outdatedEntry
	if err = json.Unmarshal([]byte(out), &entries); err != nil {
		return false
	}

	for _, entry := range entries {
		if !strings.EqualFold(entry.Name, name) {
			continue
		}

		current, currentErr := goversion.NewVersion(entry.Version)
		latest, latestErr := goversion.NewVersion(entry.LatestVersion)
		if currentErr != nil || latestErr != nil {
			return true
		}

		return current.LessThan(latest)
	}

	return false
}

// Install runs `pip install` for one package, optionally with --upgrade,
// and returns the pip exit code.
func (r *Runner) Install(ctx context.Context, name string, upgrade bool) int {
	args := []string{"-m", "pip", "install", "--disable-pip-version-check"}
	if upgrade {
		args = append(args, "--upgrade")
	}

	if r.User {
		args = append(args, "--user")
	}

	args = append(args, name)

	code, out, errOut, err := r.Run(ctx, r.Python, args...)
	if err != nil {
		logger.ErrorKV(ctx, "pip install failed to start", "package", name, "error", err)
		return -1
	}

	if out = strings.TrimSpace(out); out != "" {
		logger.Info(ctx, out)
	}

	if errOut = strings.TrimSpace(errOut); errOut != "" && code != 0 {
		logger.Error(ctx, errOut)
	}

	return code
}

// Ensure installs the package when missing and upgrades it only when pip
// reports it outdated, mirroring a minimal "make sure it is current" flow.
func (r *Runner) Ensure(ctx context.Context, name string) InstallResult {
	prev := r.InstalledVersion(ctx, name)
	code := 0

	switch {
	case prev == nil:
		logger.Infof(ctx, "%s not installed, installing", name)

		code = r.Install(ctx, name, false)
	case r.IsOutdated(ctx, name):
		logger.Infof(ctx, "%s is outdated (current %s), upgrading", name, *prev)

		code = r.Install(ctx, name, true)
	default:
		logger.Infof(ctx, "%s is up to date (%s)", name, *prev)
	}

	return InstallResult{
		Name: name,
		Prev: prev,
		Curr: r.InstalledVersion(ctx, name),
		Code: code,
	}
}

// BatchInstall refreshes every package once (duplicates are dropped keeping
// the first occurrence) and returns 1 when any refresh failed, else 0.
func (r *Runner) BatchInstall(ctx context.Context, packages []string, useUser bool) (int, error) {
	seen := make(map[string]struct{}, len(packages))
	results := make([]InstallResult, 0, len(packages))

	for _, name := range packages {
		if name == "" {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		results = append(results, r.refreshPackage(ctx, name, useUser))

		if err := ctx.Err(); err != nil {
			return 1, err
		}
	}

	return r.summarize(ctx, results), nil
}

// refreshPackage upgrades a single package and records versions around the attempt.
func (r *Runner) refreshPackage(ctx context.Context, name string, useUser bool) InstallResult {
	prev := r.InstalledVersion(ctx, name)

	scoped := *r
	scoped.User = useUser
	code := scoped.Install(ctx, name, true)

	return InstallResult{
		Name: name,
		Prev: prev,
		Curr: r.InstalledVersion(ctx, name),
		Code: code,
	}
}

// summarize logs one line per result and returns the overall exit code.
func (r *Runner) summarize(ctx context.Context, results []InstallResult) int {
	exitCode := 0

	logger.Info(ctx, "Batch install summary:")

	for _, result := range results {
		status := "OK"
		if result.Code != 0 {
			status = "FAIL"
			exitCode = 1
		}

		logger.Infof(ctx, "- %s: %s | previous: %s -> current: %s",
			result.Name, status, versionOrNotInstalled(result.Prev), versionOrNotInstalled(result.Curr))
	}

	return exitCode
}

// versionOrNotInstalled renders an optional version for log output.
func versionOrNotInstalled(v *string) string {
	if v == nil {
		return "not installed"
	}

	return *v
}
