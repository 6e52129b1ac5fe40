// =============================================================================
// EPCIS Converter - Converter Module
// =============================================================================
//
// This module contains the pipeline for a single EPCIS document, from the XML
// file on disk to the JSON event collection in the output directory.
//
// CONVERSION PIPELINE:
//   1. Read and build the generic XML tree
//   2. Map the tree to an event collection
//   3. Check the events (advisory; never fails the document)
//   4. Encode the collection as JSON
//   5. Write the output file
//   6. Add the collection to the batch report (optional)
//   7. Archive the processed files
//
// CONCURRENCY:
//   A Converter handles one file. Batch runs create one Converter per file and
//   run them concurrently; the shared report and mapper are safe for that.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-converter/internal/config"
	"github.com/ginjaninja78/epcis-converter/internal/epcis"
	"github.com/ginjaninja78/epcis-converter/internal/jsonwriter"
	"github.com/ginjaninja78/epcis-converter/internal/report"
	"github.com/ginjaninja78/epcis-converter/internal/validation"
	"github.com/ginjaninja78/epcis-converter/internal/xmltree"
	"github.com/ginjaninja78/epcis-converter/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the input document.
	FilePath string

	// OutputFile is the generated JSON file. It is empty on failure and in
	// dry-run mode.
	OutputFile string

	// Success indicates whether the document was converted.
	Success bool

	// Error is set when Success is false.
	Error error

	// ErrorType classifies Error for the batch error log.
	ErrorType string

	Stats Stats
}

// Stats contains processing statistics for one document.
type Stats struct {
	ObjectEvents      int
	AggregationEvents int
	TransactionEvents int

	// Degraded counts fields that were present in the document but could not
	// be read and were left at their default.
	Degraded int

	// ValidationErrors and ValidationWarnings count advisory findings on
	// the mapped events.
	ValidationErrors   int
	ValidationWarnings int

	ProcessingTime time.Duration
}

// Events returns the total number of mapped events.
func (s Stats) Events() int {
	return s.ObjectEvents + s.AggregationEvents + s.TransactionEvents
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the logging surface used by the converter. *zap.SugaredLogger
// satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Converter handles the conversion of a single EPCIS XML file.
type Converter struct {
	xmlPath string
	cfg     *config.MainConfig

	logger Logger
	mapper *epcis.Mapper
	files  *utils.FileManager
	report *report.Workbook
	dryRun bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger routes pipeline messages and mapper diagnostics to log.
func WithLogger(log *zap.Logger) Option {
	return func(c *Converter) {
		if log == nil {
			return
		}
		log = log.With(zap.String("file", filepath.Base(c.xmlPath)))
		c.logger = log.Sugar()
		c.mapper = epcis.NewMapper(epcis.WithLogger(log))
	}
}

// WithReport adds every converted collection to w.
func WithReport(w *report.Workbook) Option {
	return func(c *Converter) { c.report = w }
}

// WithDryRun maps the document without writing or archiving anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// WithFileManager replaces the FileManager derived from the configuration.
func WithFileManager(fm *utils.FileManager) Option {
	return func(c *Converter) {
		if fm != nil {
			c.files = fm
		}
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Converter for xmlPath.
//
// PARAMETERS:
//   - xmlPath: The input EPCIS document.
//   - cfg: The main application configuration. Nil means config.Default().
//   - opts: Optional logger, report, dry-run and file manager settings.
func New(xmlPath string, cfg *config.MainConfig, opts ...Option) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}

	c := &Converter{
		xmlPath: xmlPath,
		cfg:     cfg,
		logger:  zap.NewNop().Sugar(),
		mapper:  epcis.NewMapper(),
		files:   NewFileManager(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFileManager returns the FileManager described by cfg.
func NewFileManager(cfg *config.MainConfig) *utils.FileManager {
	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.ArchiveOnSuccess = cfg.ArchiveOnSuccess
	fm.UseTimestampSubdirs = cfg.TimestampSubdirs
	return fm
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file. It stops before the
// output is written when ctx is done.
func (c *Converter) Run(ctx context.Context) (result Result) {
	start := time.Now()
	result = Result{FilePath: c.xmlPath}
	defer func() { result.Stats.ProcessingTime = time.Since(start) }()

	c.logger.Infof("Processing file: %s", c.xmlPath)

	// =========================================================================
	// STEPS 1-2: BUILD TREE AND MAP EVENTS
	// =========================================================================

	events, stats, err := c.mapFile()
	if err != nil {
		result.Error = err
		result.ErrorType = classify(err)
		c.logger.Errorf("Failed to map %s: %v", c.xmlPath, err)
		return result
	}

	result.Stats.ObjectEvents = stats.ObjectEvents
	result.Stats.AggregationEvents = stats.AggregationEvents
	result.Stats.TransactionEvents = stats.TransactionEvents
	result.Stats.Degraded = stats.Degraded

	c.logger.Debugf("Mapped %d object, %d aggregation and %d transaction events",
		stats.ObjectEvents, stats.AggregationEvents, stats.TransactionEvents)
	if stats.Degraded > 0 {
		c.logger.Warnf("%d fields fell back to defaults", stats.Degraded)
	}

	if err := ctx.Err(); err != nil {
		result.Error = fmt.Errorf("conversion cancelled: %w", err)
		result.ErrorType = utils.ErrorTypeCancelled
		return result
	}

	// =========================================================================
	// STEP 3: CHECK EVENTS
	// =========================================================================

	checked := validation.Validate(events)
	result.Stats.ValidationErrors = checked.ErrorCount
	result.Stats.ValidationWarnings = checked.WarningCount
	for _, issue := range checked.Issues {
		c.logger.Warnf("Validation: %s", issue.Error())
	}

	// =========================================================================
	// STEP 4: ENCODE JSON
	// =========================================================================

	data, err := jsonwriter.Marshal(events, jsonwriter.Options{Pretty: c.cfg.PrettyJSON, Indent: "  "})
	if err != nil {
		result.Error = fmt.Errorf("failed to encode JSON: %w", err)
		result.ErrorType = utils.ErrorTypeWrite
		return result
	}

	if c.dryRun {
		c.logger.Infof("Dry run: %s would produce %d events", c.xmlPath, result.Stats.Events())
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUT FILE
	// =========================================================================

	outputPath, err := c.writeOutput(data)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		result.ErrorType = utils.ErrorTypeWrite
		return result
	}
	result.OutputFile = outputPath
	c.logger.Infof("Wrote output to: %s", outputPath)

	// =========================================================================
	// STEP 6: REPORT
	// =========================================================================

	if c.report != nil {
		c.report.Add(filepath.Base(c.xmlPath), events)
	}

	// =========================================================================
	// STEP 7: ARCHIVE FILES
	// =========================================================================
	// Archival problems are logged but do not fail a converted document.

	if err := c.archiveFiles(outputPath); err != nil {
		c.logger.Warnf("Failed to archive files: %v", err)
	}

	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (c *Converter) mapFile() (*epcis.EventCollection, epcis.Stats, error) {
	f, err := os.Open(c.xmlPath)
	if err != nil {
		return nil, epcis.Stats{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return c.mapper.MapXML(f)
}

// writeOutput writes data next to a temporary name and renames it into place
// so that watchers of the output directory never see a partial file.
func (c *Converter) writeOutput(data []byte) (string, error) {
	if err := os.MkdirAll(c.files.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := c.files.OutputPath(c.cfg.OutputNameFormat, c.xmlPath)
	tmp := outputPath + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return outputPath, nil
}

func (c *Converter) archiveFiles(outputPath string) error {
	if _, err := c.files.ArchiveInputFile(c.xmlPath); err != nil {
		return fmt.Errorf("failed to archive input file: %w", err)
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		return fmt.Errorf("failed to archive output file: %w", err)
	}
	return nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, xmltree.ErrMalformedXML):
		return utils.ErrorTypeParse
	case errors.Is(err, epcis.ErrDocumentShape):
		return utils.ErrorTypeShape
	default:
		return utils.ErrorTypeRead
	}
}
