package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds tool parameters for the pip-updates binary.
type Settings struct {
	// PythonExecutable is the interpreter used for `-m pip` invocations
	// and for running the external installer script.
	PythonExecutable string `yaml:"python_executable"`
	// ReportDirectory is where run reports are persisted.
	ReportDirectory string `yaml:"report_directory"`
	// LogLevel is the minimum log level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for tool settings.
	DefaultConfigFilename = "pip-updates-settings.yaml"

	// DefaultPythonExecutable is used when no interpreter is configured.
	DefaultPythonExecutable = "python3"

	// DefaultReportDirectory is used when no report directory is configured.
	DefaultReportDirectory = "reports"

	// DefaultFilePermissions is the file mode for settings and report files.
	DefaultFilePermissions = 0o600
)

// errSettingsNotSet is returned when a nil settings value is provided.
var errSettingsNotSet = errors.New("settings are not set")

// Default returns settings populated with the built-in defaults.
func Default() *Settings {
	return &Settings{
		PythonExecutable: DefaultPythonExecutable,
		ReportDirectory:  DefaultReportDirectory,
		LogLevel:         "info",
	}
}

// Load reads settings from the provided path and fills in defaults.
// A missing file is not an error: the defaults are returned instead, so the
// binary works without any configuration on disk.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Settings
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path with restricted permissions.
func Save(path string, cfg *Settings) error {
	if cfg == nil {
		return errSettingsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for unset fields. All fields are optional, so the
// only possible failure is a nil settings value.
func Validate(cfg *Settings) error {
	if cfg == nil {
		return errSettingsNotSet
	}

	if cfg.PythonExecutable == "" {
		cfg.PythonExecutable = DefaultPythonExecutable
	}

	if cfg.ReportDirectory == "" {
		cfg.ReportDirectory = DefaultReportDirectory
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return nil
}
