// =============================================================================
// EPCIS Converter - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   epcis validate <file>... [flags]
//
// FLAGS:
//   --strict : Treat warnings as failures
//
// Maps each document and reports the advisory checks without writing output.
// Exits non-zero if any document fails to map or has error-level issues.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-converter/internal/epcis"
	"github.com/ginjaninja78/epcis-converter/internal/validation"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check EPCIS documents without converting them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			if !validateFile(cmd.OutOrStdout(), path, validateStrict) {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d document(s) failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat warnings as failures")
}

// validateFile prints the findings for one document and reports whether it
// passed.
func validateFile(out io.Writer, path string, strict bool) bool {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("✗"), name, err)
		return false
	}
	defer f.Close()

	mapper := epcis.NewMapper(epcis.WithLogger(logger.With(zap.String("file", name))))
	events, stats, err := mapper.MapXML(f)
	if err != nil {
		fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("✗"), name, err)
		return false
	}

	r := validation.Validate(events)
	ok := r.IsValid(strict)
	mark := successStyle.Render("✓")
	if !ok {
		mark = errorStyle.Render("✗")
	}
	fmt.Fprintf(out, "%s %s: %d events, %d errors, %d warnings, %d degraded fields\n",
		mark, name, r.EventsValidated, r.ErrorCount, r.WarningCount, stats.Degraded)
	for _, issue := range r.Issues {
		fmt.Fprintln(out, mutedStyle.Render("    "+issue.Error()))
	}
	return ok
}
