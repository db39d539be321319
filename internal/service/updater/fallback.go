package updater

import (
	"context"
	"fmt"
	"strings"

	"github.com/x4357/pip-updates/internal/logger"
)

// pinnedAndLoose splits packages into pip requirement pins ("name==version")
// for packages with a published version and bare names for the rest.
func (r *run) pinnedAndLoose(packages []string) ([]string, []string) {
	pinned := make([]string, 0, len(packages))
	loose := make([]string, 0, len(packages))

	for _, pkg := range packages {
		if version := r.opts.PublishedVersions[pkg]; version != nil {
			pinned = append(pinned, fmt.Sprintf("%s==%s", pkg, *version))
		} else {
			loose = append(loose, pkg)
		}
	}

	return pinned, loose
}

// fallbackInstall upgrades packages through pip directly, one batch for
// pinned packages and one for loose ones. Empty batches are skipped, a
// failed batch is logged and does not abort the other; failures surface
// later through mismatch detection. Only context cancellation aborts.
func (r *run) fallbackInstall(ctx context.Context, packages []string) error {
	baseArgs := []string{"-m", "pip", "install", "--upgrade"}
	if r.useUser {
		baseArgs = append(baseArgs, "--user")
	}

	pinned, loose := r.pinnedAndLoose(packages)

	for _, batch := range [][]string{pinned, loose} {
		if len(batch) == 0 {
			continue
		}

		args := append(append([]string{}, baseArgs...), batch...)

		logger.Infof(ctx, "Fallback pip install: %s %s", r.settings.PythonExecutable, strings.Join(args, " "))

		code, out, errOut, err := r.cmdRun(ctx, r.settings.PythonExecutable, args...)
		if err != nil {
			if isContextError(err) {
				return err
			}

			logger.ErrorKV(ctx, "Fallback pip install failed to run", "error", err)

			continue
		}

		if code != 0 {
			logger.Errorf(ctx, "Fallback pip install exited with code %d", code)
		}

		if out = strings.TrimSpace(out); out != "" {
			logger.Info(ctx, out)
		}

		if errOut = strings.TrimSpace(errOut); errOut != "" {
			logger.Error(ctx, errOut)
		}
	}

	return ctx.Err()
}
