// =============================================================================
// EPCIS Converter - XLSX Report Module
// =============================================================================
//
// This module builds an XLSX workbook summarizing the events mapped during a
// run. Documents are added as they are converted (possibly from several
// goroutines) and the workbook is written once at the end.
//
// WORKBOOK LAYOUT:
//   Summary            - one row per source document with event counts
//   ObjectEvents       - one row per object event
//   AggregationEvents  - one row per aggregation event
//   TransactionEvents  - one row per transaction event
//
// List-valued fields are joined with "; " so each event stays on one row.
//
// =============================================================================

package report

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/epcis-converter/internal/epcis"
)

// Sheet names.
const (
	SheetSummary      = "Summary"
	SheetObject       = "ObjectEvents"
	SheetAggregation  = "AggregationEvents"
	SheetTransaction  = "TransactionEvents"
	listSeparator     = "; "
	defaultSheetName  = "Sheet1"
	defaultColumnWide = 24
)

var (
	summaryHeader = []string{"File", "Object Events", "Aggregation Events", "Transaction Events", "Total"}

	commonHeader = []string{"File", "Event Time", "Record Time", "Time Zone Offset", "Action",
		"Biz Step", "Disposition", "Read Point", "Biz Location", "Biz Transactions"}

	objectHeader      = append(append([]string{}, commonHeader...), "EPCs", "ILMD")
	aggregationHeader = append(append([]string{}, commonHeader...), "Parent ID", "Child EPCs", "Child Quantities")
	transactionHeader = append(append([]string{}, commonHeader...), "Parent ID", "EPCs", "Quantities")
)

// =============================================================================
// WORKBOOK
// =============================================================================

type entry struct {
	source string
	events *epcis.EventCollection
}

// Workbook accumulates mapped documents. It is safe for concurrent use.
type Workbook struct {
	mu      sync.Mutex
	entries []entry
}

// New returns an empty Workbook.
func New() *Workbook {
	return &Workbook{}
}

// Add records the events mapped from source.
func (w *Workbook) Add(source string, events *epcis.EventCollection) {
	if events == nil {
		events = epcis.NewEventCollection()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry{source: source, events: events})
}

// Len returns the number of documents added so far.
func (w *Workbook) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Save writes the workbook to path.
//
// PARAMETERS:
//   - path: The destination file; it should end in .xlsx.
//
// RETURNS:
//   - An error if any sheet cannot be populated or the file cannot be saved.
func (w *Workbook) Save(path string) error {
	w.mu.Lock()
	entries := append([]entry(nil), w.entries...)
	w.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheetName, SheetSummary); err != nil {
		return fmt.Errorf("failed to rename default sheet: %w", err)
	}
	for _, name := range []string{SheetObject, SheetAggregation, SheetTransaction} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := map[string][][]interface{}{
		SheetSummary:     {row(summaryHeader)},
		SheetObject:      {row(objectHeader)},
		SheetAggregation: {row(aggregationHeader)},
		SheetTransaction: {row(transactionHeader)},
	}

	for _, e := range entries {
		c := e.events
		sheets[SheetSummary] = append(sheets[SheetSummary], []interface{}{
			e.source,
			len(c.ObjectEvents),
			len(c.AggregationEvents),
			len(c.TransactionEvents),
			c.Len(),
		})
		for _, ev := range c.ObjectEvents {
			sheets[SheetObject] = append(sheets[SheetObject], objectRow(e.source, ev))
		}
		for _, ev := range c.AggregationEvents {
			sheets[SheetAggregation] = append(sheets[SheetAggregation], aggregationRow(e.source, ev))
		}
		for _, ev := range c.TransactionEvents {
			sheets[SheetTransaction] = append(sheets[SheetTransaction], transactionRow(e.source, ev))
		}
	}

	for name, rows := range sheets {
		if err := writeSheet(f, name, rows, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		values := values
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return fmt.Errorf("failed to name last column: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", last, defaultColumnWide); err != nil {
		return fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return nil
}

func row(header []string) []interface{} {
	out := make([]interface{}, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}

func commonCells(source, action string, ev epcis.Event) []interface{} {
	return []interface{}{
		source,
		ev.EventTime,
		ev.RecordTime,
		ev.EventTimeZoneOffset,
		action,
		ev.BizStep,
		ev.Disposition,
		ev.ReadPoint,
		ev.BizLocation,
		bizTransactions(ev),
	}
}

func objectRow(source string, ev epcis.ObjectEvent) []interface{} {
	return append(commonCells(source, ev.Action, ev.Event), epcList(ev.EPC, ev.EPCList), ilmdText(ev.ILMD))
}

// ilmdText renders ILMD as the same JSON the mapper writes.
func ilmdText(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func aggregationRow(source string, ev epcis.AggregationEvent) []interface{} {
	return append(commonCells(source, ev.Action, ev.Event),
		ev.ParentID,
		strings.Join(ev.ChildEPCs, listSeparator),
		quantities(ev.ChildQuantityList),
	)
}

func transactionRow(source string, ev epcis.TransactionEvent) []interface{} {
	return append(commonCells(source, ev.Action, ev.Event),
		ev.ParentID,
		epcList(ev.EPC, ev.EPCList),
		quantities(ev.QuantityList),
	)
}

func epcList(single string, list []string) string {
	if single != "" {
		return single
	}
	return strings.Join(list, listSeparator)
}

func bizTransactions(ev epcis.Event) string {
	txs := ev.BizTransactionList
	if ev.BizTransaction != nil {
		txs = []epcis.BizTransaction{*ev.BizTransaction}
	}
	parts := make([]string, 0, len(txs))
	for _, tx := range txs {
		parts = append(parts, tx.Type+"="+tx.ID)
	}
	return strings.Join(parts, listSeparator)
}

func quantities(qs []epcis.Quantity) string {
	parts := make([]string, 0, len(qs))
	for _, q := range qs {
		s := q.EPCClass + " x " + strconv.FormatFloat(q.Quantity, 'f', -1, 64)
		if q.Unit != "" {
			s += " " + q.Unit
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, listSeparator)
}
