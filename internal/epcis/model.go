// Package epcis maps EPCIS event-capture documents into a typed event model.
//
// The mapper consumes the generic tree produced by package xmltree and
// returns an EventCollection. Only a missing document envelope is fatal;
// malformed fields inside an event are defaulted and mapping continues.
package epcis

// EventCollection is the result of mapping one document. The three lists are
// never nil; a kind with no events in the source yields an empty list.
type EventCollection struct {
	ObjectEvents      []ObjectEvent      `json:"objectEvents"`
	AggregationEvents []AggregationEvent `json:"aggregationEvents"`
	TransactionEvents []TransactionEvent `json:"transactionEvents"`
}

// NewEventCollection returns a collection with empty, non-nil lists.
func NewEventCollection() *EventCollection {
	return &EventCollection{
		ObjectEvents:      []ObjectEvent{},
		AggregationEvents: []AggregationEvent{},
		TransactionEvents: []TransactionEvent{},
	}
}

// Len returns the total number of events across all kinds.
func (c *EventCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ObjectEvents) + len(c.AggregationEvents) + len(c.TransactionEvents)
}

// Event holds the fields shared by every event kind. Timestamps are kept as
// the verbatim source text.
//
// BizTransaction and BizTransactionList are mutually exclusive: a single
// transaction sets the former, two or more set the latter.
type Event struct {
	EventTime           string `json:"eventTime,omitempty"`
	RecordTime          string `json:"recordTime,omitempty"`
	EventTimeZoneOffset string `json:"eventTimeZoneOffset,omitempty"`
	BizStep             string `json:"bizStep,omitempty"`
	Disposition         string `json:"disposition,omitempty"`
	ReadPoint           string `json:"readPoint,omitempty"`
	BizLocation         string `json:"bizLocation,omitempty"`

	BizTransaction     *BizTransaction  `json:"bizTransaction,omitempty"`
	BizTransactionList []BizTransaction `json:"bizTransactionList,omitempty"`
}

// BizTransaction references a business transaction. ID comes from the element
// text and Type from its type attribute.
type BizTransaction struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Quantity is one quantityElement of a class-level list.
type Quantity struct {
	EPCClass string  `json:"epcClass"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Action values used by the event-capture standard. The mapper passes the
// source text through without checking it against this set.
const (
	ActionAdd     = "ADD"
	ActionObserve = "OBSERVE"
	ActionDelete  = "DELETE"
)

// ObjectEvent records objects observed at a point in a process. EPC and
// EPCList are mutually exclusive in the same way as the business
// transaction fields.
type ObjectEvent struct {
	Event

	Action  string   `json:"action,omitempty"`
	EPC     string   `json:"epc,omitempty"`
	EPCList []string `json:"epcList,omitempty"`

	// ILMD is the instance/lot master data, passed through as rendered by
	// xmltree.Node.Value.
	ILMD any `json:"ilmd,omitempty"`
}

// AggregationEvent records children being packed into or removed from a
// parent. The list fields are always present, possibly empty.
type AggregationEvent struct {
	Event

	Action            string     `json:"action,omitempty"`
	ParentID          string     `json:"parentID,omitempty"`
	ChildEPCs         []string   `json:"childEPCs"`
	ChildQuantityList []Quantity `json:"childQuantityList"`
}

// TransactionEvent associates objects with business transactions.
type TransactionEvent struct {
	Event

	Action       string     `json:"action,omitempty"`
	ParentID     string     `json:"parentID,omitempty"`
	QuantityList []Quantity `json:"quantityList"`
	EPC          string     `json:"epc,omitempty"`
	EPCList      []string   `json:"epcList,omitempty"`
}
