// =============================================================================
// EPCIS Converter - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Values are resolved in
// this order, later sources overriding earlier ones:
//
//   1. Built-in defaults (Default)
//   2. The YAML configuration file (config.yaml)
//   3. EPCIS_* environment variables
//
// A missing file is only an error when the caller asked for that file
// explicitly; the default path is optional.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for EPCIS XML documents.
	// Default: "./input"
	InputDir string `yaml:"input_dir" env:"EPCIS_INPUT_DIR"`

	// OutputDir receives one JSON document per processed input.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" env:"EPCIS_OUTPUT_DIR"`

	// InputArchiveDir receives input files after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" env:"EPCIS_INPUT_ARCHIVE_DIR"`

	// OutputArchiveDir receives a copy of every generated JSON document.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" env:"EPCIS_OUTPUT_ARCHIVE_DIR"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional log file written in addition to stderr.
	// Default: "" (stderr only)
	LogFile string `yaml:"log_file" env:"EPCIS_LOG_FILE"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" env:"EPCIS_LOG_LEVEL"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the output file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {original}  - Input file name without extension
	// Default: "{original}_{uuid}.json"
	OutputNameFormat string `yaml:"output_name_format" env:"EPCIS_OUTPUT_NAME_FORMAT"`

	// PrettyJSON indents the generated JSON.
	// Default: true
	PrettyJSON bool `yaml:"pretty_json" env:"EPCIS_PRETTY_JSON"`

	// WriteReport produces an XLSX workbook summarizing a batch run.
	// Default: false
	WriteReport bool `yaml:"write_report" env:"EPCIS_WRITE_REPORT"`

	// ReportName is the workbook file name, created in OutputDir.
	// Default: "epcis_report.xlsx"
	ReportName string `yaml:"report_name" env:"EPCIS_REPORT_NAME"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" env:"EPCIS_MAX_CONCURRENCY"`

	// ContinueOnError keeps a batch running after a file fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error" env:"EPCIS_CONTINUE_ON_ERROR"`

	// ArchiveOnSuccess moves processed inputs and copies outputs to the
	// archive directories.
	// Default: true
	ArchiveOnSuccess bool `yaml:"archive_on_success" env:"EPCIS_ARCHIVE_ON_SUCCESS"`

	// TimestampSubdirs files archived documents under YYYY/MM/DD.
	// Default: false
	TimestampSubdirs bool `yaml:"timestamp_subdirs" env:"EPCIS_TIMESTAMP_SUBDIRS"`

	// WatchDebounce is how long the watch command waits for a file to stop
	// changing before processing it.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce" env:"EPCIS_WATCH_DEBOUNCE"`
}

// Default returns the built-in configuration.
func Default() *MainConfig {
	return &MainConfig{
		InputDir:         "./input",
		OutputDir:        "./output",
		InputArchiveDir:  "./input_archive",
		OutputArchiveDir: "./output_archive",
		LogLevel:         "info",
		OutputNameFormat: "{original}_{uuid}.json",
		PrettyJSON:       true,
		ReportName:       "epcis_report.xlsx",
		MaxConcurrency:   4,
		ContinueOnError:  true,
		ArchiveOnSuccess: true,
		WatchDebounce:    500 * time.Millisecond,
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the configuration from a YAML file and the
// environment.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//   - required: When false, a missing file is not an error and the defaults
//     are used instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed, or the result is invalid.
func LoadMainConfig(configPath string, required bool) (*MainConfig, error) {
	config := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Keys missing from the file keep their defaults.
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	applyMainConfigDefaults(config)

	if err := validateMainConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyMainConfigDefaults fills values left empty by the file or the
// environment.
func applyMainConfigDefaults(config *MainConfig) {
	defaults := Default()

	if config.InputDir == "" {
		config.InputDir = defaults.InputDir
	}
	if config.OutputDir == "" {
		config.OutputDir = defaults.OutputDir
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = defaults.InputArchiveDir
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = defaults.OutputArchiveDir
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = defaults.OutputNameFormat
	}
	if config.ReportName == "" {
		config.ReportName = defaults.ReportName
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.WatchDebounce == 0 {
		config.WatchDebounce = defaults.WatchDebounce
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, config.LogLevel)
	}

	if config.MaxConcurrency < 0 {
		return fmt.Errorf("%w: max_concurrency must be positive, got %d", ErrInvalidConfig, config.MaxConcurrency)
	}

	if config.WatchDebounce < 0 {
		return fmt.Errorf("%w: watch_debounce must not be negative", ErrInvalidConfig)
	}

	if !strings.HasSuffix(strings.ToLower(config.ReportName), ".xlsx") {
		return fmt.Errorf("%w: report_name must end in .xlsx, got %q", ErrInvalidConfig, config.ReportName)
	}

	return nil
}
