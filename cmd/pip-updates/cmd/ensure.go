package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/x4357/pip-updates/internal/logger"
	"github.com/x4357/pip-updates/internal/pip"
)

var (
	// ensureUser makes installs target the user site.
	ensureUser bool

	// errEnsureFailed is returned when at least one package could not be
	// installed or upgraded.
	errEnsureFailed = errors.New("one or more packages failed to install")

	// ensureCmd installs missing packages and upgrades outdated ones without
	// running the full orchestrated update flow.
	ensureCmd = &cobra.Command{
		Use:   "ensure <package>...",
		Short: "Install missing packages and upgrade outdated ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cobraCmd.SilenceUsage = true

			settings, err := loadSettings(ctx)
			if err != nil {
				return err
			}

			runner := pip.NewRunner(settings.PythonExecutable, ensureUser)

			if ensureAll(ctx, runner, args) {
				return nil
			}

			return errEnsureFailed
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	ensureCmd.Flags().BoolVar(&ensureUser, "user", false, "install into the user site-packages")

	rootCmd.AddCommand(ensureCmd)
}

// ensureAll ensures every package once and reports overall success.
func ensureAll(ctx context.Context, runner *pip.Runner, packages []string) bool {
	ok := true

	for _, name := range packages {
		result := runner.Ensure(ctx, name)
		if result.Code != 0 {
			ok = false

			logger.Errorf(ctx, "%s failed with exit code %d", result.Name, result.Code)
		}
	}

	return ok
}
