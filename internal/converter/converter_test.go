package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/epcis-converter/internal/config"
	"github.com/ginjaninja78/epcis-converter/internal/epcis"
	"github.com/ginjaninja78/epcis-converter/internal/report"
	"github.com/ginjaninja78/epcis-converter/internal/xmltree"
	"github.com/ginjaninja78/epcis-converter/pkg/utils"
)

const validDoc = `<epcis:EPCISDocument xmlns:epcis="urn:epcglobal:epcis:xsd:1">
  <EPCISBody>
    <EventList>
      <ObjectEvent>
        <eventTime>2015-03-15T10:11:12.000Z</eventTime>
        <action>OBSERVE</action>
        <epcList><epc>urn:epc:id:sgtin:0614141.107346.2017</epc></epcList>
      </ObjectEvent>
      <TransactionEvent>
        <action>ADD</action>
        <quantityList>
          <quantityElement><epcClass>urn:epc:class:lgtin:4012345.012345.998877</epcClass><quantity>abc</quantity></quantityElement>
        </quantityList>
      </TransactionEvent>
    </EventList>
  </EPCISBody>
</epcis:EPCISDocument>`

func setup(t *testing.T, name, content string) (*config.MainConfig, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	cfg.OutputNameFormat = "{original}.json"

	if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfg.InputDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfg, path
}

func TestRun_Success(t *testing.T) {
	cfg, path := setup(t, "shipment.xml", validDoc)
	wb := report.New()

	core, logs := observer.New(zap.DebugLevel)
	res := New(path, cfg, WithLogger(zap.New(core)), WithReport(wb)).Run(context.Background())

	if !res.Success {
		t.Fatalf("Run failed: %v", res.Error)
	}
	if res.Stats.ObjectEvents != 1 || res.Stats.TransactionEvents != 1 || res.Stats.Events() != 2 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
	if res.Stats.Degraded != 1 {
		t.Errorf("Degraded = %d, want 1", res.Stats.Degraded)
	}
	if res.Stats.ProcessingTime <= 0 {
		t.Error("ProcessingTime not recorded")
	}

	want := filepath.Join(cfg.OutputDir, "shipment.json")
	if res.OutputFile != want {
		t.Errorf("OutputFile = %s, want %s", res.OutputFile, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if !strings.Contains(string(data), `"epc": "urn:epc:id:sgtin:0614141.107346.2017"`) {
		t.Errorf("unexpected output:\n%s", data)
	}
	if !strings.Contains(string(data), `"quantityList": []`) {
		t.Errorf("degraded quantity list should be empty:\n%s", data)
	}

	if utils.FileExists(path) {
		t.Error("input should have been archived")
	}
	if !utils.FileExists(filepath.Join(cfg.InputArchiveDir, "shipment.xml")) {
		t.Error("input archive missing")
	}
	if !utils.FileExists(filepath.Join(cfg.OutputArchiveDir, "shipment.json")) {
		t.Error("output archive missing")
	}
	if wb.Len() != 1 {
		t.Errorf("report entries = %d, want 1", wb.Len())
	}
	if logs.FilterMessage("field degraded to default").Len() != 1 {
		t.Errorf("expected one degraded-field log entry, got %d", logs.FilterMessage("field degraded to default").Len())
	}
}

func TestRun_DryRun(t *testing.T) {
	cfg, path := setup(t, "shipment.xml", validDoc)

	res := New(path, cfg, WithDryRun(true)).Run(context.Background())
	if !res.Success || res.OutputFile != "" {
		t.Fatalf("unexpected dry-run result %+v", res)
	}
	if res.Stats.Events() != 2 {
		t.Errorf("dry run should still map events, got %+v", res.Stats)
	}
	if utils.FileExists(cfg.OutputDir) {
		t.Error("dry run created the output directory")
	}
	if !utils.FileExists(path) {
		t.Error("dry run archived the input")
	}
}

func TestRun_NoArchive(t *testing.T) {
	cfg, path := setup(t, "shipment.xml", validDoc)
	cfg.ArchiveOnSuccess = false

	res := New(path, cfg).Run(context.Background())
	if !res.Success {
		t.Fatalf("Run failed: %v", res.Error)
	}
	if !utils.FileExists(path) {
		t.Error("input moved although archiving is disabled")
	}
}

func TestRun_TimestampSubdirs(t *testing.T) {
	cfg, path := setup(t, "shipment.xml", validDoc)
	cfg.TimestampSubdirs = true

	before := time.Now()
	res := New(path, cfg).Run(context.Background())
	after := time.Now()
	if !res.Success {
		t.Fatalf("Run failed: %v", res.Error)
	}

	found := false
	for _, day := range []time.Time{before, after} {
		sub := day.Format("2006/01/02")
		if utils.FileExists(filepath.Join(cfg.InputArchiveDir, sub, "shipment.xml")) &&
			utils.FileExists(filepath.Join(cfg.OutputArchiveDir, sub, "shipment.json")) {
			found = true
		}
	}
	if !found {
		t.Error("archived files not found under a dated subdirectory")
	}
	if utils.FileExists(filepath.Join(cfg.InputArchiveDir, "shipment.xml")) {
		t.Error("input archived at the top level")
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErr  error
		wantType string
	}{
		{"malformed", "<EPCISDocument><EPCISBody>", xmltree.ErrMalformedXML, utils.ErrorTypeParse},
		{"missing event list", "<EPCISDocument><EPCISBody/></EPCISDocument>", epcis.ErrDocumentShape, utils.ErrorTypeShape},
		{"wrong root", "<Other/>", epcis.ErrDocumentShape, utils.ErrorTypeShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, path := setup(t, "bad.xml", tt.content)

			res := New(path, cfg).Run(context.Background())
			if res.Success {
				t.Fatal("expected failure")
			}
			if !errors.Is(res.Error, tt.wantErr) {
				t.Errorf("error = %v, want %v", res.Error, tt.wantErr)
			}
			if res.ErrorType != tt.wantType {
				t.Errorf("ErrorType = %q, want %q", res.ErrorType, tt.wantType)
			}
			if !utils.FileExists(path) {
				t.Error("failed input must stay in place")
			}
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	cfg, _ := setup(t, "x.xml", validDoc)

	res := New(filepath.Join(cfg.InputDir, "absent.xml"), cfg).Run(context.Background())
	if res.Success || res.ErrorType != utils.ErrorTypeRead {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRun_Cancelled(t *testing.T) {
	cfg, path := setup(t, "shipment.xml", validDoc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(path, cfg).Run(ctx)
	if res.Success || !errors.Is(res.Error, context.Canceled) {
		t.Errorf("unexpected result %+v", res)
	}
	if utils.FileExists(filepath.Join(cfg.OutputDir, "shipment.json")) {
		t.Error("cancelled run wrote output")
	}
}
