// =============================================================================
// EPCIS Converter - Validation Engine
// =============================================================================
//
// This module checks mapped events against the EPCIS 1.x rules that the
// mapper itself does not enforce. Mapping never fails because of these
// checks; they are reported next to the output.
//
// CHECKS:
//   Errors (the event is incomplete):
//     - missing eventTime
//     - missing action
//   Warnings (the event is unusual):
//     - action outside ADD / OBSERVE / DELETE
//     - eventTime or recordTime not in RFC 3339 form
//     - eventTimeZoneOffset not in +hh:mm / -hh:mm form
//     - ObjectEvent without any EPC or ILMD
//     - AggregationEvent ADD or DELETE without parentID
//     - TransactionEvent without a business transaction
//     - negative quantities
//
// =============================================================================

package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/epcis-converter/internal/epcis"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ISSUES
// =============================================================================

// Issue is one finding on one event.
type Issue struct {
	Severity string

	// Kind is the event element name, e.g. "ObjectEvent".
	Kind string

	// Index is the position of the event among events of the same kind.
	Index int

	Field   string
	Value   string
	Message string
}

// Error implements the error interface.
func (i *Issue) Error() string {
	s := fmt.Sprintf("[%s] %s #%d, field '%s': %s",
		strings.ToUpper(i.Severity), i.Kind, i.Index, i.Field, i.Message)
	if i.Value != "" {
		s += fmt.Sprintf(" (value: '%s')", i.Value)
	}
	return s
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result contains the findings for one collection.
type Result struct {
	Issues          []*Issue
	ErrorCount      int
	WarningCount    int
	EventsValidated int
}

// IsValid reports whether no error-level issue was found. With strict set,
// warnings count too.
func (r *Result) IsValid(strict bool) bool {
	if strict {
		return len(r.Issues) == 0
	}
	return r.ErrorCount == 0
}

func (r *Result) add(severity, kind string, index int, field, value, format string, args ...interface{}) {
	r.Issues = append(r.Issues, &Issue{
		Severity: severity,
		Kind:     kind,
		Index:    index,
		Field:    field,
		Value:    value,
		Message:  fmt.Sprintf(format, args...),
	})
	if severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks every event in c. A nil collection has no issues.
func Validate(c *epcis.EventCollection) *Result {
	r := &Result{}
	if c == nil {
		return r
	}

	for i, ev := range c.ObjectEvents {
		const kind = "ObjectEvent"
		r.EventsValidated++
		r.common(kind, i, ev.Event, ev.Action)
		if ev.EPC == "" && len(ev.EPCList) == 0 && ev.ILMD == nil {
			r.add(SeverityWarning, kind, i, "epcList", "", "event names no EPC")
		}
	}

	for i, ev := range c.AggregationEvents {
		const kind = "AggregationEvent"
		r.EventsValidated++
		r.common(kind, i, ev.Event, ev.Action)
		if ev.ParentID == "" && (ev.Action == epcis.ActionAdd || ev.Action == epcis.ActionDelete) {
			r.add(SeverityWarning, kind, i, "parentID", "", "%s requires a parentID", ev.Action)
		}
		r.quantities(kind, i, "childQuantityList", ev.ChildQuantityList)
	}

	for i, ev := range c.TransactionEvents {
		const kind = "TransactionEvent"
		r.EventsValidated++
		r.common(kind, i, ev.Event, ev.Action)
		if ev.BizTransaction == nil && len(ev.BizTransactionList) == 0 {
			r.add(SeverityWarning, kind, i, "bizTransactionList", "", "event names no business transaction")
		}
		r.quantities(kind, i, "quantityList", ev.QuantityList)
	}

	return r
}

// =============================================================================
// FIELD CHECKS
// =============================================================================

var timeZoneOffset = regexp.MustCompile(`^[+-](0\d|1[0-4]):[0-5]\d$`)

func (r *Result) common(kind string, index int, ev epcis.Event, action string) {
	switch action {
	case "":
		r.add(SeverityError, kind, index, "action", "", "action is required")
	case epcis.ActionAdd, epcis.ActionObserve, epcis.ActionDelete:
	default:
		r.add(SeverityWarning, kind, index, "action", action, "unknown action")
	}

	if ev.EventTime == "" {
		r.add(SeverityError, kind, index, "eventTime", "", "eventTime is required")
	} else if !isTimestamp(ev.EventTime) {
		r.add(SeverityWarning, kind, index, "eventTime", ev.EventTime, "not an RFC 3339 timestamp")
	}

	if ev.RecordTime != "" && !isTimestamp(ev.RecordTime) {
		r.add(SeverityWarning, kind, index, "recordTime", ev.RecordTime, "not an RFC 3339 timestamp")
	}

	if ev.EventTimeZoneOffset != "" && !timeZoneOffset.MatchString(ev.EventTimeZoneOffset) {
		r.add(SeverityWarning, kind, index, "eventTimeZoneOffset", ev.EventTimeZoneOffset, "expected +hh:mm or -hh:mm")
	}
}

func (r *Result) quantities(kind string, index int, field string, qs []epcis.Quantity) {
	for _, q := range qs {
		if q.Quantity < 0 {
			r.add(SeverityWarning, kind, index, field, q.EPCClass,
				"negative quantity %s", fmt.Sprint(q.Quantity))
		}
	}
}

func isTimestamp(s string) bool {
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

// =============================================================================
// ISSUE FORMATTING
// =============================================================================

// FormatIssues renders issues one per line for display or logging.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No validation issues."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Validation completed with %d issue(s):\n\n", len(issues))
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue.Error())
	}
	return b.String()
}
