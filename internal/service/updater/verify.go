package updater

import (
	"context"
	"sort"
	"strings"

	"github.com/x4357/pip-updates/internal/logger"
)

// verifyArtifacts gates on artifact metadata presence after retry
// resolution. Deep content verification is out of scope here; the performed
// status only attests that every package carries artifact metadata.
func (r *run) verifyArtifacts(ctx context.Context) map[string]any {
	logger.Info(ctx, "Starting post-install verification (lightweight checks only)")

	if len(r.packages) == 0 {
		logger.Info(ctx, "No packages provided for verification; skipping")

		return map[string]any{
			"status": "skipped",
			"reason": "no packages provided",
		}
	}

	var missing []string

	for _, pkg := range r.packages {
		if _, ok := r.opts.PublishedArtifacts[pkg]; !ok {
			missing = append(missing, pkg)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)

		logger.Infof(ctx, "Skipping detailed verification because artifact metadata is missing for: %s",
			strings.Join(missing, ", "))

		return map[string]any{
			"status":  "skipped",
			"reason":  "missing artifact metadata",
			"missing": missing,
		}
	}

	logger.Info(ctx, "Artifact metadata present for all packages; deep verification not implemented")

	return map[string]any{
		"status": "performed",
		"detail": "metadata validated; deep verification not implemented",
	}
}
