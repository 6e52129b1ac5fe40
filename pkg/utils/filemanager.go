// =============================================================================
// EPCIS Converter - File Manager Utility
// =============================================================================
//
// This module provides the file handling around the converter:
//   - Discovery of EPCIS XML documents in the input directory
//   - Output file naming
//   - Archival of processed inputs and outputs
//   - Error and summary logs for batch runs
//
// ARCHIVAL STRATEGY:
//   - Input documents are moved to the input archive after a successful run
//   - JSON outputs are copied to the output archive and stay in place
//   - Failed documents remain in the input directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInputPattern selects EPCIS documents in the input directory.
const DefaultInputPattern = "*.xml"

const rule = "================================================================================\n"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the converter.
type FileManager struct {
	InputDir         string
	OutputDir        string
	InputArchiveDir  string
	OutputArchiveDir string

	// UseTimestampSubdirs files archives under YYYY/MM/DD.
	UseTimestampSubdirs bool

	// ArchiveOnSuccess enables ArchiveInputFile and ArchiveOutputFile.
	ArchiveOnSuccess bool

	now func() time.Time
}

// NewFileManager creates a FileManager that archives on success.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		ArchiveOnSuccess: true,
		now:              time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates every configured directory that is missing.
// Empty entries are skipped.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir, fm.OutputArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists regular files in the input directory matching
// pattern, sorted by name. The match is case-insensitive on the extension
// so that "ASN.XML" is picked up by "*.xml".
//
// PARAMETERS:
//   - pattern: A glob such as "*.xml". Empty means DefaultInputPattern.
//
// RETURNS:
//   - The matching file paths.
//   - An error if the directory cannot be read or the pattern is invalid.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultInputPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, _ := filepath.Match(strings.ToLower(pattern), strings.ToLower(e.Name()))
		if ok {
			files = append(files, filepath.Join(fm.InputDir, e.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}

// IsInputFile reports whether path looks like an EPCIS document.
func IsInputFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed document into the input archive.
//
// RETURNS:
//   - The archived path, or filePath unchanged when archiving is disabled.
//   - An error if the move fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath, err := fm.prepareArchivePath(fm.InputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and remove.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies a JSON output into the output archive.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath, err := fm.prepareArchivePath(fm.OutputArchiveDir, filePath)
	if err != nil {
		return "", err
	}
	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

func (fm *FileManager) prepareArchivePath(archiveDir, filePath string) (string, error) {
	dir := archiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(archiveDir, fm.clock().Format("2006/01/02"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	return filepath.Join(dir, filepath.Base(filePath)), nil
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputPath returns the JSON output path for inputPath in the output directory.
func (fm *FileManager) OutputPath(format, inputPath string) string {
	name := GenerateOutputFileName(format, map[string]string{
		"original": strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)),
	})
	return filepath.Join(fm.OutputDir, name)
}

// GenerateOutputFileName expands a name format.
//
// PARAMETERS:
//   - format: The name format. Placeholders:
//       {uuid}      - A random UUID
//       {timestamp} - Current time as YYYYMMDD_HHMMSS
//       {date}      - Current date as YYYYMMDD
//       {time}      - Current time as HHMMSS
//       {original}  - Input file name without extension (from params)
//   - params: Extra placeholder values, keyed without braces.
//
// RETURNS:
//   - The file name, always ending in ".json".
//
// EXAMPLE:
//   format: "{original}_{date}.json"
//   params: {"original": "shipment"}
//   output: "shipment_20240115.json"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	pairs := []string{
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	}
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", value)
	}

	result := strings.NewReplacer(pairs...).Replace(format)
	if !strings.HasSuffix(strings.ToLower(result), ".json") {
		result += ".json"
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// Error types recorded in the error log.
const (
	ErrorTypeRead      = "read"
	ErrorTypeParse     = "parse"
	ErrorTypeShape     = "document"
	ErrorTypeWrite     = "write"
	ErrorTypeCancelled = "cancelled"
)

// ErrorLogEntry is one failed document.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
}

// WriteErrorLog writes entries to error_log_<timestamp>.txt in outputDir.
//
// RETURNS:
//   - The log path, or "" when there is nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	now := time.Now()
	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	return logPath, writeFile(logPath, func(w *bufio.Writer) {
		fmt.Fprintf(w, "EPCIS Converter - Error Log\nGenerated: %s\nTotal Errors: %d\n%s\n",
			now.Format("2006-01-02 15:04:05"), len(entries), rule)

		for i, e := range entries {
			fmt.Fprintf(w, "Error #%d\n", i+1)
			fmt.Fprintf(w, "  Timestamp:  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "  File:       %s\n", e.FileName)
			fmt.Fprintf(w, "  Error Type: %s\n", e.ErrorType)
			fmt.Fprintf(w, "  Message:    %s\n\n", e.ErrorMessage)
		}

		fmt.Fprintf(w, "%sEnd of Error Log\n", rule)
	})
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes one batch run.
type ProcessingSummary struct {
	RunID           string
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalEvents     int
	DegradedFields  int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []ErrorLogEntry
}

// ProcessedFileInfo describes one converted document.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	Events      int
	ProcessTime time.Duration
}

// WriteSummaryLog writes processing_summary_<timestamp>.txt in outputDir.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("processing_summary_%s.txt", summary.EndTime.Format("20060102_150405")))

	return summaryPath, writeFile(summaryPath, func(w *bufio.Writer) {
		fmt.Fprintf(w, "EPCIS Converter - Processing Summary\n%s\n", rule)
		fmt.Fprintf(w, "Run:        %s\n", summary.RunID)
		fmt.Fprintf(w, "Start Time: %s\n", summary.StartTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "End Time:   %s\n", summary.EndTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Duration:   %s\n\n", summary.EndTime.Sub(summary.StartTime))
		fmt.Fprintf(w, "Total Files:     %d\n", summary.TotalFiles)
		fmt.Fprintf(w, "Successful:      %d\n", summary.SuccessfulFiles)
		fmt.Fprintf(w, "Failed:          %d\n", summary.FailedFiles)
		fmt.Fprintf(w, "Total Events:    %d\n", summary.TotalEvents)
		fmt.Fprintf(w, "Degraded Fields: %d\n\n", summary.DegradedFields)

		if len(summary.ProcessedFiles) > 0 {
			w.WriteString("Successful Files:\n")
			for _, pf := range summary.ProcessedFiles {
				fmt.Fprintf(w, "  %s -> %s (%d events, %s)\n", pf.InputFile, pf.OutputFile, pf.Events, pf.ProcessTime)
			}
			w.WriteString("\n")
		}
		if len(summary.FailedFilesList) > 0 {
			w.WriteString("Failed Files:\n")
			for _, ff := range summary.FailedFilesList {
				fmt.Fprintf(w, "  %s: %s\n", ff.FileName, ff.ErrorMessage)
			}
			w.WriteString("\n")
		}

		fmt.Fprintf(w, "%sEnd of Summary\n", rule)
	})
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func writeFile(path string, body func(w *bufio.Writer)) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	body(w)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}
	return nil
}

// copyFile copies src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
