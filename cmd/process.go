// =============================================================================
// EPCIS Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which converts every EPCIS
// document in the input directory.
//
// COMMAND USAGE:
//   epcis process [flags]
//
// FLAGS:
//   --dry-run  : Map documents without writing or archiving anything
//   --single   : Process only the file given with --file
//   --file     : Path to a specific file to process (used with --single)
//
// PROCESSING PIPELINE:
//   1. Discover *.xml documents in the input directory
//   2. Convert them concurrently, at most max_concurrency at a time
//   3. Write the XLSX report (write_report)
//   4. Write the error log and processing summary
//   5. Print a summary table
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/epcis-converter/internal/config"
	"github.com/ginjaninja78/epcis-converter/internal/converter"
	"github.com/ginjaninja78/epcis-converter/internal/report"
	"github.com/ginjaninja78/epcis-converter/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun     bool
	singleFile bool
	filePath   string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert every EPCIS document in the input directory",
	Long: `The process command scans the input directory for EPCIS XML documents and
converts each one into a JSON event collection in the output directory.

Documents are processed concurrently. A failing document does not stop the
others unless continue_on_error is false.

On success:
  - The JSON collection is placed in the output directory
  - The original document is moved to the input archive

On error:
  - An error log is created in the output directory
  - The original document remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if singleFile && filePath == "" {
			return errors.New("--single requires --file")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runProcess(ctx, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Map documents without writing output files")
	processCmd.Flags().BoolVar(&singleFile, "single", false, "Process only a single file (use with --file)")
	processCmd.Flags().StringVar(&filePath, "file", "", "Path to a specific file to process (used with --single)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context, out io.Writer) error {
	var files []string
	if singleFile {
		files = []string{filePath}
	} else {
		fm := converter.NewFileManager(mainConfig)
		found, err := fm.DiscoverInputFiles(utils.DefaultInputPattern)
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
		files = found
	}

	if len(files) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No EPCIS documents found in "+mainConfig.InputDir))
		return nil
	}

	batch, err := runBatch(ctx, mainConfig, logger, files, batchOptions{
		dryRun:   dryRun,
		progress: os.Stderr,
	})
	if batch != nil {
		fmt.Fprintln(out, renderSummary(batch))
	}
	return err
}

// =============================================================================
// BATCH EXECUTION
// =============================================================================

type batchOptions struct {
	dryRun bool

	// progress receives the progress bar; nil disables it.
	progress io.Writer
}

type batchResult struct {
	Summary      utils.ProcessingSummary
	Results      []converter.Result
	ReportPath   string
	ErrorLogPath string
	SummaryPath  string
	DryRun       bool
}

// runBatch converts files concurrently. The returned batchResult is non-nil
// whenever any file was attempted, including when err is set.
func runBatch(ctx context.Context, cfg *config.MainConfig, log *zap.Logger, files []string, opts batchOptions) (*batchResult, error) {
	runID := uuid.New().String()
	log = log.With(zap.String("run", runID))
	start := time.Now()

	fm := converter.NewFileManager(cfg)
	if !opts.dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return nil, err
		}
	}

	var wb *report.Workbook
	if cfg.WriteReport && !opts.dryRun {
		wb = report.New()
	}

	bar := newProgressBar(len(files), opts.progress)

	var (
		mu      sync.Mutex
		results = make([]converter.Result, 0, len(files))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for _, path := range files {
		path := path
		g.Go(func() error {
			conv := converter.New(path, cfg,
				converter.WithLogger(log),
				converter.WithReport(wb),
				converter.WithDryRun(opts.dryRun),
				converter.WithFileManager(fm),
			)
			res := conv.Run(gctx)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}

			if !res.Success && !cfg.ContinueOnError {
				return fmt.Errorf("%s: %w", filepath.Base(path), res.Error)
			}
			return nil
		})
	}
	waitErr := g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	sort.Slice(results, func(i, j int) bool { return results[i].FilePath < results[j].FilePath })

	batch := &batchResult{
		Results: results,
		DryRun:  opts.dryRun,
		Summary: summarize(runID, start, time.Now(), results),
	}
	batch.Summary.TotalFiles = len(files)

	if opts.dryRun {
		return batch, waitErr
	}

	if wb != nil && wb.Len() > 0 {
		reportPath := filepath.Join(cfg.OutputDir, cfg.ReportName)
		if err := wb.Save(reportPath); err != nil {
			log.Error("failed to write report", zap.Error(err))
		} else {
			batch.ReportPath = reportPath
		}
	}

	errorLog, err := utils.WriteErrorLog(batch.Summary.FailedFilesList, cfg.OutputDir)
	if err != nil {
		log.Error("failed to write error log", zap.Error(err))
	}
	batch.ErrorLogPath = errorLog

	summaryPath, err := utils.WriteSummaryLog(batch.Summary, cfg.OutputDir)
	if err != nil {
		log.Error("failed to write processing summary", zap.Error(err))
	}
	batch.SummaryPath = summaryPath

	log.Info("batch complete",
		zap.Int("files", batch.Summary.TotalFiles),
		zap.Int("succeeded", batch.Summary.SuccessfulFiles),
		zap.Int("failed", batch.Summary.FailedFiles),
		zap.Duration("elapsed", batch.Summary.EndTime.Sub(batch.Summary.StartTime)),
	)

	return batch, waitErr
}

func summarize(runID string, start, end time.Time, results []converter.Result) utils.ProcessingSummary {
	s := utils.ProcessingSummary{
		RunID:     runID,
		StartTime: start,
		EndTime:   end,
	}
	for _, r := range results {
		if r.Success {
			s.SuccessfulFiles++
			s.TotalEvents += r.Stats.Events()
			s.DegradedFields += r.Stats.Degraded
			s.ProcessedFiles = append(s.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   r.FilePath,
				OutputFile:  r.OutputFile,
				Events:      r.Stats.Events(),
				ProcessTime: r.Stats.ProcessingTime,
			})
			continue
		}
		s.FailedFiles++
		s.FailedFilesList = append(s.FailedFilesList, utils.ErrorLogEntry{
			Timestamp:    end,
			FileName:     r.FilePath,
			ErrorType:    r.ErrorType,
			ErrorMessage: r.Error.Error(),
		})
	}
	return s
}

// =============================================================================
// OUTPUT
// =============================================================================

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00CC66")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Converting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func renderSummary(b *batchResult) string {
	var sb strings.Builder

	for _, r := range b.Results {
		name := filepath.Base(r.FilePath)
		if r.Success {
			target := filepath.Base(r.OutputFile)
			if b.DryRun {
				target = fmt.Sprintf("%d events", r.Stats.Events())
			}
			fmt.Fprintf(&sb, "%s %s -> %s\n", successStyle.Render("✓"), name, target)
		} else {
			fmt.Fprintf(&sb, "%s %s: %v\n", errorStyle.Render("✗"), name, r.Error)
		}
	}

	s := b.Summary
	title := "Processing Complete"
	if b.DryRun {
		title += " (dry run)"
	}
	lines := []string{
		titleStyle.Render(title),
		fmt.Sprintf("Total files:     %d", s.TotalFiles),
		fmt.Sprintf("Successful:      %d", s.SuccessfulFiles),
		fmt.Sprintf("Errors:          %d", s.FailedFiles),
		fmt.Sprintf("Events:          %d", s.TotalEvents),
		fmt.Sprintf("Degraded fields: %d", s.DegradedFields),
		fmt.Sprintf("Time elapsed:    %s", s.EndTime.Sub(s.StartTime).Round(time.Millisecond)),
	}
	if b.ReportPath != "" {
		lines = append(lines, mutedStyle.Render("Report:    "+b.ReportPath))
	}
	if b.ErrorLogPath != "" {
		lines = append(lines, mutedStyle.Render("Error log: "+b.ErrorLogPath))
	}
	sb.WriteString(boxStyle.Render(strings.Join(lines, "\n")))

	return sb.String()
}
