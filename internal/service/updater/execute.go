package updater

import (
	"context"

	"github.com/x4357/pip-updates/internal/logger"
)

// execute runs the installing phases in order: primary script attempt,
// fallback when the script was skipped or unhealthy, version probing,
// mismatch reconciliation, retry, summary and verification. All recoverable
// failures are absorbed where they occur; only context cancellation returns.
func (r *run) execute(ctx context.Context) error {
	scriptExists := fileExists(r.scriptPath)

	var (
		usedScript bool
		scriptCode *int
	)

	if scriptExists {
		var err error

		usedScript, scriptCode, err = r.tryRunScript(ctx)
		if err != nil {
			return err
		}
	} else {
		logger.Info(ctx, "pip-updates script not found; using direct pip fallback installation")
	}

	r.execution["script_attempt"] = map[string]any{
		"invoked":     usedScript,
		"return_code": codeValue(scriptCode),
	}

	pinned, loose := r.pinnedAndLoose(r.packages)

	usedFallback := !usedScript || (scriptCode != nil && *scriptCode != 0)
	r.execution["fallback"] = map[string]any{
		"invoked": usedFallback,
		"pinned":  pinned,
		"loose":   loose,
	}

	if usedFallback {
		if err := r.fallbackInstall(ctx, r.packages); err != nil {
			return err
		}
	}

	initialVersions := r.probeAll(ctx, "Installed package versions after first update attempt:")
	mismatches := collectMismatches(r.packages, r.opts.PublishedVersions, initialVersions)

	finalVersions := make(map[string]*string, len(initialVersions))
	for pkg, version := range initialVersions {
		finalVersions[pkg] = version
	}

	var retryCode *int

	if len(mismatches) > 0 {
		mode := "fallback"

		if usedScript && !usedFallback && scriptExists {
			mode = "script"
			code := r.retryWithScript(ctx, mismatches, finalVersions)
			retryCode = &code
		} else {
			logger.Info(ctx, "Retrying mismatches with pinned fallback pip install")

			if err := r.fallbackInstall(ctx, mismatchedPackages(mismatches)); err != nil {
				return err
			}

			for pkg, version := range r.probeAll(ctx, "Installed package versions after retry:") {
				finalVersions[pkg] = version
			}

			// The fallback path has no single exit code to report; the retry
			// is best-effort and failures surface via the final snapshot.
			code := 0
			retryCode = &code
		}

		r.execution["retry"] = map[string]any{
			"mode":        mode,
			"return_code": codeValue(retryCode),
			"packages":    mismatchedPackages(mismatches),
		}
	}

	anyFailures := r.printSummary(ctx, finalVersions, retryCode)
	verification := r.verifyArtifacts(ctx)

	status := "completed"
	if anyFailures {
		status = "attention"
	}

	r.result["status"] = status
	r.result["script_return_code"] = codeValue(scriptCode)
	r.result["used_script"] = usedScript
	r.result["fallback_used"] = usedFallback
	r.result["retry_return_code"] = codeValue(retryCode)
	r.result["any_failures"] = anyFailures
	r.result["initial_versions"] = initialVersions
	r.result["final_versions"] = finalVersions
	r.result["mismatches"] = mismatchEntries(mismatches)
	r.result["verification"] = verification

	return ctx.Err()
}

// codeValue renders an optional exit code for the report payload.
func codeValue(code *int) any {
	if code == nil {
		return nil
	}

	return *code
}
