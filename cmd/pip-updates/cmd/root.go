package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/x4357/pip-updates/internal/config"
	"github.com/x4357/pip-updates/internal/logger"
	"github.com/x4357/pip-updates/internal/pip"
	"github.com/x4357/pip-updates/internal/service/updater"
	"github.com/x4357/pip-updates/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string

	// errRunFailed is returned when the run report asks for operator action.
	errRunFailed = errors.New("pip updates run did not complete cleanly")

	// rootCmd represents the base command for executing a pip update run.
	rootCmd = &cobra.Command{
		Use:   "pip-updates [payload-file]",
		Short: "Update pip packages from a JSON command payload",
		Long: `Execute a pip package update run described by a JSON command payload.

The payload is read from the given file, or from standard input when the
argument is omitted or set to "-". The payload is validated against the
input contract, the update flow runs and the persisted run report is
printed to standard output as JSON.

The command exits with a non-zero status when the payload is rejected,
when the run aborts, or when the report flags packages for attention.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cobraCmd.SilenceUsage = true

			settings, err := loadSettings(ctx)
			if err != nil {
				return err
			}

			payload, err := readPayload(args)
			if err != nil {
				return err
			}

			// The primary installer is the pip runner itself; it accepts any
			// construction shape, so the first candidate wins.
			factory := func(updater.FactoryConfig) (updater.ScriptRunner, error) {
				return pip.NewRunner(settings.PythonExecutable, false), nil
			}

			result := updater.MainJSON(ctx, payload, settings, factory)

			if err = printResult(result); err != nil {
				return err
			}

			if !runSucceeded(result) {
				return errRunFailed
			}

			return nil
		},
	}
)

// Execute runs the pip-updates CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath,
		"config", "c", config.DefaultConfigFilename, "path to configuration file")
}

// loadSettings loads the settings file and applies its log level.
func loadSettings(ctx context.Context) (*config.Settings, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	} else {
		logger.Warnf(ctx, "Unknown log level %q, keeping %s", settings.LogLevel, logger.Level())
	}

	return settings, nil
}

// readPayload decodes the JSON command payload from the file argument or
// from standard input.
func readPayload(args []string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)

	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}

	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	var payload map[string]any
	if err = json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return payload, nil
}

// printResult renders the run report (or failure payload) to stdout.
func printResult(result map[string]any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	fmt.Println(string(data))

	return nil
}

// runSucceeded reports whether the payload describes a clean run: the run
// itself succeeded and the result does not ask for attention.
func runSucceeded(result map[string]any) bool {
	if result["status"] != "success" {
		return false
	}

	if inner, ok := result["result"].(map[string]any); ok {
		return inner["status"] != "attention"
	}

	return true
}
