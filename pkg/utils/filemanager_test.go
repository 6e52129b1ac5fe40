package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	return fm
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.InputDir, "b.xml"), "<b/>")
	touch(t, filepath.Join(fm.InputDir, "A.XML"), "<a/>")
	touch(t, filepath.Join(fm.InputDir, "notes.txt"), "x")
	if err := os.Mkdir(filepath.Join(fm.InputDir, "dir.xml"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := fm.DiscoverInputFiles("")
	if err != nil {
		t.Fatalf("DiscoverInputFiles failed: %v", err)
	}

	want := []string{
		filepath.Join(fm.InputDir, "A.XML"),
		filepath.Join(fm.InputDir, "b.xml"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files = %v, want %v", files, want)
	}
}

func TestDiscoverInputFiles_MissingDir(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "nope"), "", "", "")
	if _, err := fm.DiscoverInputFiles(""); err == nil {
		t.Error("expected an error for a missing input directory")
	}
}

func TestIsInputFile(t *testing.T) {
	tests := map[string]bool{
		"a.xml":      true,
		"dir/B.XML":  true,
		"a.json":     false,
		"xml":        false,
		"a.xml.part": false,
	}
	for path, want := range tests {
		if got := IsInputFile(path); got != want {
			t.Errorf("IsInputFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestArchive(t *testing.T) {
	fm := newTestManager(t)
	in := filepath.Join(fm.InputDir, "doc.xml")
	out := filepath.Join(fm.OutputDir, "doc.json")
	touch(t, in, "<doc/>")
	touch(t, out, "{}")

	archivedIn, err := fm.ArchiveInputFile(in)
	if err != nil {
		t.Fatalf("ArchiveInputFile failed: %v", err)
	}
	if FileExists(in) {
		t.Error("input should have been moved")
	}
	if archivedIn != filepath.Join(fm.InputArchiveDir, "doc.xml") || !FileExists(archivedIn) {
		t.Errorf("unexpected input archive path %s", archivedIn)
	}

	archivedOut, err := fm.ArchiveOutputFile(out)
	if err != nil {
		t.Fatalf("ArchiveOutputFile failed: %v", err)
	}
	if !FileExists(out) {
		t.Error("output should have been copied, not moved")
	}
	data, err := os.ReadFile(archivedOut)
	if err != nil || string(data) != "{}" {
		t.Errorf("archived output = %q, %v", data, err)
	}
}

func TestArchive_TimestampSubdirs(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true
	fm.now = func() time.Time { return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC) }

	in := filepath.Join(fm.InputDir, "doc.xml")
	touch(t, in, "<doc/>")

	got, err := fm.ArchiveInputFile(in)
	if err != nil {
		t.Fatalf("ArchiveInputFile failed: %v", err)
	}
	want := filepath.Join(fm.InputArchiveDir, "2024", "01", "15", "doc.xml")
	if got != want {
		t.Errorf("archive path = %s, want %s", got, want)
	}
}

func TestArchive_Disabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveOnSuccess = false
	in := filepath.Join(fm.InputDir, "doc.xml")
	touch(t, in, "<doc/>")

	got, err := fm.ArchiveInputFile(in)
	if err != nil || got != in || !FileExists(in) {
		t.Errorf("disabled archive moved the file: %s, %v", got, err)
	}
}

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(string) bool
	}{
		{"original", "{original}.json", func(s string) bool { return s == "shipment.json" }},
		{"adds extension", "{original}", func(s string) bool { return s == "shipment.json" }},
		{"uuid", "{original}_{uuid}.json", func(s string) bool {
			return strings.HasPrefix(s, "shipment_") && len(s) == len("shipment_")+36+len(".json")
		}},
		{"date", "{date}.json", func(s string) bool { return s == time.Now().Format("20060102")+".json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateOutputFileName(tt.format, map[string]string{"original": "shipment"})
			if !tt.check(got) {
				t.Errorf("GenerateOutputFileName(%q) = %q", tt.format, got)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	fm := newTestManager(t)
	got := fm.OutputPath("{original}.json", "/some/where/asn.xml")
	if want := filepath.Join(fm.OutputDir, "asn.json"); got != want {
		t.Errorf("OutputPath = %s, want %s", got, want)
	}
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	if err != nil || path != "" {
		t.Fatalf("empty log should write nothing, got %q, %v", path, err)
	}

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "bad.xml",
		ErrorType:    ErrorTypeShape,
		ErrorMessage: "epcis: envelope: missing EPCISDocument",
	}}, dir)
	if err != nil {
		t.Fatalf("WriteErrorLog failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Total Errors: 1", "bad.xml", "missing EPCISDocument"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("error log missing %q", want)
		}
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	path, err := WriteSummaryLog(ProcessingSummary{
		RunID:           "run-1",
		StartTime:       start,
		EndTime:         start.Add(time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalEvents:     3,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.xml", OutputFile: "a.json", Events: 3}},
		FailedFilesList: []ErrorLogEntry{{FileName: "b.xml", ErrorMessage: "boom"}},
	}, dir)
	if err != nil {
		t.Fatalf("WriteSummaryLog failed: %v", err)
	}
	if filepath.Base(path) != "processing_summary_20240115_100001.txt" {
		t.Errorf("unexpected summary name %s", path)
	}
	data, _ := os.ReadFile(path)
	for _, want := range []string{"run-1", "Total Events:    3", "a.xml -> a.json", "b.xml: boom"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
