package updater

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/x4357/pip-updates/internal/logger"
)

// ScriptRunner is the canonical contract for the primary installer.
type ScriptRunner interface {
	// BatchInstall upgrades the provided packages and returns an exit code.
	BatchInstall(ctx context.Context, packages []string, useUser bool) (int, error)
}

// FactoryConfig is one candidate constructor shape for a RunnerFactory.
// Nil fields mean "not part of this shape".
type FactoryConfig struct {
	// UseUser carries the user-site install flag when the shape includes it.
	UseUser *bool
	// Context carries the run context when the shape includes it.
	Context *RunContext
}

// RunnerFactory constructs a ScriptRunner from a candidate configuration.
// Factories that do not support a given shape must return
// ErrIncompatibleConfig so the next candidate can be tried; this is the
// compatibility-shim boundary for external factories of unknown signature.
type RunnerFactory func(cfg FactoryConfig) (ScriptRunner, error)

// ErrIncompatibleConfig signals that a factory does not accept the offered
// configuration shape.
var ErrIncompatibleConfig = errors.New("factory does not accept this configuration shape")

// errFactoryExhausted is reported when no candidate shape succeeded.
var errFactoryExhausted = errors.New("installer factory could not be instantiated with any known shape")

// noopRunner reports success without installing anything. It stands in when
// no real factory is supplied, leaving all work to the fallback installer.
type noopRunner struct{}

// BatchInstall implements ScriptRunner.
func (noopRunner) BatchInstall(context.Context, []string, bool) (int, error) {
	return 0, nil
}

// NoopFactory builds the no-op runner regardless of shape.
func NoopFactory(FactoryConfig) (ScriptRunner, error) {
	return noopRunner{}, nil
}

// instantiateRunner tries each candidate configuration shape in preference
// order: user flag with context, user flag only, context only, empty.
// The first shape the factory accepts wins.
func instantiateRunner(factory RunnerFactory, rc *RunContext, useUser bool) (ScriptRunner, error) {
	candidates := []FactoryConfig{
		{UseUser: &useUser, Context: rc},
		{UseUser: &useUser},
		{Context: rc},
		{},
	}

	for _, candidate := range candidates {
		runner, err := factory(candidate)
		if err == nil {
			return runner, nil
		}

		if errors.Is(err, ErrIncompatibleConfig) {
			continue
		}

		return nil, err
	}

	return nil, errFactoryExhausted
}

// tryRunScript attempts the primary installer: construct a runner, then run
// the batch install. Construction and invocation failures are recoverable
// and reported as (invoked=false, code=nil); only context cancellation
// escapes as a hard error.
func (r *run) tryRunScript(ctx context.Context) (bool, *int, error) {
	runner, err := instantiateRunner(r.factory, r.opts.Context, r.useUser)
	if err != nil {
		if isContextError(err) {
			return false, nil, err
		}

		logger.Errorf(ctx, "pip-updates instantiation failed: %v; switching to fallback pip install", err)

		return false, nil, nil
	}

	code, err := runner.BatchInstall(ctx, r.packages, r.useUser)
	if err != nil {
		if isContextError(err) {
			return false, nil, err
		}

		logger.Errorf(ctx, "pip-updates invocation failed: %v; switching to fallback pip install", err)

		return false, nil, nil
	}

	if code != 0 {
		logger.Error(ctx, "pip-updates reported non-zero exit; switching to fallback pip install")
	}

	return true, &code, nil
}

// retryWithScript re-invokes the installer script as a subprocess with every
// mismatched package pinned to its expected version, then re-probes only
// those packages into finalVersions.
func (r *run) retryWithScript(ctx context.Context, mismatches []Mismatch, finalVersions map[string]*string) int {
	args := []string{r.scriptPath}
	if r.useUser {
		args = append(args, "--user")
	}

	for _, m := range mismatches {
		args = append(args, fmt.Sprintf("%s==%s", m.Package, m.Expected))
	}

	logger.Infof(ctx, "Retrying install for pinned versions: %s %s",
		r.settings.PythonExecutable, strings.Join(args, " "))

	code, out, errOut, err := r.cmdRun(ctx, r.settings.PythonExecutable, args...)
	if err != nil {
		logger.ErrorKV(ctx, "Retry script invocation failed", "error", err)

		code = -1
	}

	if out = strings.TrimSpace(out); out != "" {
		logger.Info(ctx, out)
	}

	if errOut = strings.TrimSpace(errOut); errOut != "" {
		logger.Error(ctx, errOut)
	}

	for _, m := range mismatches {
		finalVersions[m.Package] = r.probe.InstalledVersion(ctx, m.Package)
	}

	return code
}

// isContextError reports whether err stems from cancellation or deadline.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
