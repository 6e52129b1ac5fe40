package validation

import (
	"strings"
	"testing"

	"github.com/ginjaninja78/epcis-converter/internal/epcis"
)

func TestValidate_Clean(t *testing.T) {
	c := epcis.NewEventCollection()
	c.ObjectEvents = append(c.ObjectEvents, epcis.ObjectEvent{
		Event: epcis.Event{
			EventTime:           "2015-03-15T10:11:12.000Z",
			EventTimeZoneOffset: "-06:00",
		},
		Action: epcis.ActionObserve,
		EPC:    "urn:epc:id:sgtin:0614141.107346.2017",
	})
	c.TransactionEvents = append(c.TransactionEvents, epcis.TransactionEvent{
		Event: epcis.Event{
			EventTime:      "2015-03-15T10:11:12+01:00",
			BizTransaction: &epcis.BizTransaction{ID: "po1", Type: "po"},
		},
		Action:       epcis.ActionAdd,
		QuantityList: []epcis.Quantity{{EPCClass: "c", Quantity: 2}},
	})

	r := Validate(c)
	if len(r.Issues) != 0 {
		t.Errorf("unexpected issues:\n%s", FormatIssues(r.Issues))
	}
	if r.EventsValidated != 2 || !r.IsValid(true) {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name     string
		coll     func(c *epcis.EventCollection)
		field    string
		severity string
	}{
		{"missing action", func(c *epcis.EventCollection) {
			c.ObjectEvents = append(c.ObjectEvents, epcis.ObjectEvent{Event: epcis.Event{EventTime: "2015-03-15T10:11:12Z"}, EPC: "a"})
		}, "action", SeverityError},
		{"unknown action", func(c *epcis.EventCollection) {
			c.ObjectEvents = append(c.ObjectEvents, epcis.ObjectEvent{Event: epcis.Event{EventTime: "2015-03-15T10:11:12Z"}, Action: "MOVE", EPC: "a"})
		}, "action", SeverityWarning},
		{"missing event time", func(c *epcis.EventCollection) {
			c.ObjectEvents = append(c.ObjectEvents, epcis.ObjectEvent{Action: "ADD", EPC: "a"})
		}, "eventTime", SeverityError},
		{"bad event time", func(c *epcis.EventCollection) {
			c.ObjectEvents = append(c.ObjectEvents, epcis.ObjectEvent{Event: epcis.Event{EventTime: "yesterday"}, Action: "ADD", EPC: "a"})
		}, "eventTime", SeverityWarning},
		{"bad offset", func(c *epcis.EventCollection) {
			c.ObjectEvents = append(c.ObjectEvents, epcis.ObjectEvent{Event: epcis.Event{EventTime: "2015-03-15T10:11:12Z", EventTimeZoneOffset: "0600"}, Action: "ADD", EPC: "a"})
		}, "eventTimeZoneOffset", SeverityWarning},
		{"no epc", func(c *epcis.EventCollection) {
			c.ObjectEvents = append(c.ObjectEvents, epcis.ObjectEvent{Event: epcis.Event{EventTime: "2015-03-15T10:11:12Z"}, Action: "ADD"})
		}, "epcList", SeverityWarning},
		{"aggregation without parent", func(c *epcis.EventCollection) {
			c.AggregationEvents = append(c.AggregationEvents, epcis.AggregationEvent{Event: epcis.Event{EventTime: "2015-03-15T10:11:12Z"}, Action: "ADD", ChildEPCs: []string{"a"}})
		}, "parentID", SeverityWarning},
		{"transaction without biz transaction", func(c *epcis.EventCollection) {
			c.TransactionEvents = append(c.TransactionEvents, epcis.TransactionEvent{Event: epcis.Event{EventTime: "2015-03-15T10:11:12Z"}, Action: "ADD", EPC: "a"})
		}, "bizTransactionList", SeverityWarning},
		{"negative quantity", func(c *epcis.EventCollection) {
			c.AggregationEvents = append(c.AggregationEvents, epcis.AggregationEvent{
				Event:             epcis.Event{EventTime: "2015-03-15T10:11:12Z"},
				Action:            "OBSERVE",
				ChildQuantityList: []epcis.Quantity{{EPCClass: "c", Quantity: -1}},
			})
		}, "childQuantityList", SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := epcis.NewEventCollection()
			tt.coll(c)

			r := Validate(c)
			if len(r.Issues) != 1 {
				t.Fatalf("expected one issue, got:\n%s", FormatIssues(r.Issues))
			}
			issue := r.Issues[0]
			if issue.Field != tt.field || issue.Severity != tt.severity {
				t.Errorf("issue = %+v, want field %s severity %s", issue, tt.field, tt.severity)
			}
			if got := r.IsValid(false); got != (tt.severity == SeverityWarning) {
				t.Errorf("IsValid(false) = %v", got)
			}
			if r.IsValid(true) {
				t.Error("IsValid(true) should reject any issue")
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	if r := Validate(nil); len(r.Issues) != 0 || r.EventsValidated != 0 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestFormatIssues(t *testing.T) {
	if got := FormatIssues(nil); got != "No validation issues." {
		t.Errorf("FormatIssues(nil) = %q", got)
	}

	issue := &Issue{Severity: SeverityWarning, Kind: "ObjectEvent", Index: 2, Field: "action", Value: "MOVE", Message: "unknown action"}
	want := "[WARNING] ObjectEvent #2, field 'action': unknown action (value: 'MOVE')"
	if issue.Error() != want {
		t.Errorf("Error() = %q, want %q", issue.Error(), want)
	}
	if !strings.Contains(FormatIssues([]*Issue{issue}), "1. "+want) {
		t.Error("FormatIssues should number each issue")
	}
}
