// =============================================================================
// EPCIS Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand
// shares the configuration and logger prepared here.
//
// COBRA CLI STRUCTURE:
//   rootCmd (epcis)
//   ├── parseCmd   (epcis parse <file>)
//   ├── processCmd (epcis process)
//   ├── watchCmd   (epcis watch)
//   ├── validateCmd (epcis validate <file>...)
//   └── versionCmd (epcis version)
//
// CONFIGURATION:
//   config.yaml is optional unless --config is given explicitly. EPCIS_*
//   environment variables override the file.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-converter/internal/config"
	"github.com/ginjaninja78/epcis-converter/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// Set by PersistentPreRunE before any subcommand runs.
var (
	mainConfig *config.MainConfig
	logger     *zap.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "epcis",
	Short: "EPCIS Converter - Map EPCIS XML event documents to JSON",
	Long: `EPCIS Converter reads EPCIS 1.x XML documents and maps the object,
aggregation and transaction events they carry into a typed JSON event
collection.

Key Features:
  - Single documents from a file or stdin
  - Concurrent batch processing of an input directory
  - Watch mode for documents dropped into the input directory
  - Optional XLSX report of every mapped event
  - Automatic file archival on successful processing

Example Usage:
  epcis parse shipment.xml             # Print the JSON collection
  epcis process                        # Convert every document in the input directory
  epcis process --config ./my.yaml     # Use a custom configuration file
  epcis watch                          # Convert documents as they arrive
  epcis validate shipment.xml          # Check a document without converting it`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command) error {
	required := cmd.Flags().Changed("config")

	cfg, err := config.LoadMainConfig(cfgFile, required)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	log, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Verbose: verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	mainConfig = cfg
	logger = log
	return nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
