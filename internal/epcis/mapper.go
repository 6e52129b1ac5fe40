package epcis

import (
	"io"

	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-converter/internal/xmltree"
)

// Envelope element names, matched by local name so any namespace prefix on
// the document element is accepted.
const (
	tagDocument  = "EPCISDocument"
	tagBody      = "EPCISBody"
	tagEventList = "EventList"

	tagObjectEvent      = "ObjectEvent"
	tagAggregationEvent = "AggregationEvent"
	tagTransactionEvent = "TransactionEvent"
)

// Stats summarizes one mapping call.
type Stats struct {
	ObjectEvents      int
	AggregationEvents int
	TransactionEvents int

	// Degraded counts fields that were present but replaced by their default.
	Degraded int
}

// Mapper converts generic trees into event collections. It keeps no state
// between calls and is safe for concurrent use.
type Mapper struct {
	log *zap.Logger
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger makes the mapper report degraded fields at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(m *Mapper) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMapper returns a Mapper. Without options it logs nothing.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var defaultMapper = NewMapper()

// Parse maps doc with a default Mapper.
func Parse(doc *xmltree.Node) (*EventCollection, error) {
	return defaultMapper.Map(doc)
}

// ParseXML builds the tree from r and maps it with a default Mapper.
func ParseXML(r io.Reader) (*EventCollection, error) {
	c, _, err := defaultMapper.MapXML(r)
	return c, err
}

// Map converts doc, the synthetic document node returned by xmltree.Parse.
func (m *Mapper) Map(doc *xmltree.Node) (*EventCollection, error) {
	c, _, err := m.MapWithStats(doc)
	return c, err
}

// MapXML builds the tree from r and maps it.
func (m *Mapper) MapXML(r io.Reader) (*EventCollection, Stats, error) {
	doc, err := xmltree.Parse(r)
	if err != nil {
		return nil, Stats{}, &ParseError{Stage: StageXML, Err: err}
	}
	return m.MapWithStats(doc)
}

// MapWithStats is Map that also reports what was mapped. On error no partial
// collection is returned.
func (m *Mapper) MapWithStats(doc *xmltree.Node) (*EventCollection, Stats, error) {
	list, err := eventList(doc)
	if err != nil {
		return nil, Stats{}, &ParseError{Stage: StageEnvelope, Err: err}
	}

	run := &mapping{log: m.log}
	c := NewEventCollection()

	for i, n := range list.Child(tagObjectEvent) {
		c.ObjectEvents = append(c.ObjectEvents, run.objectEvent(n, i))
	}
	for i, n := range list.Child(tagAggregationEvent) {
		c.AggregationEvents = append(c.AggregationEvents, run.aggregationEvent(n, i))
	}
	for i, n := range list.Child(tagTransactionEvent) {
		c.TransactionEvents = append(c.TransactionEvents, run.transactionEvent(n, i))
	}

	run.stats.ObjectEvents = len(c.ObjectEvents)
	run.stats.AggregationEvents = len(c.AggregationEvents)
	run.stats.TransactionEvents = len(c.TransactionEvents)
	return c, run.stats, nil
}

// eventList descends Document > Body > EventList.
func eventList(doc *xmltree.Node) (*xmltree.Node, error) {
	path := []string{tagDocument, tagBody, tagEventList}
	cur := doc
	for i, tag := range path {
		next, ok := cur.First(tag)
		if !ok {
			return nil, &ShapeError{Path: path[:i+1]}
		}
		cur = next
	}
	return cur, nil
}

// mapping carries the logger and counters of a single Map call.
type mapping struct {
	log   *zap.Logger
	stats Stats
}

func (mp *mapping) degrade(kind string, index int, err error) {
	mp.stats.Degraded++
	mp.log.Debug("field degraded to default",
		zap.String("event", kind),
		zap.Int("index", index),
		zap.Error(err),
	)
}

func (mp *mapping) common(n *xmltree.Node, kind string, index int) Event {
	ev := Event{
		EventTime:           firstText(n, "eventTime"),
		RecordTime:          firstText(n, "recordTime"),
		EventTimeZoneOffset: firstText(n, "eventTimeZoneOffset"),
		BizStep:             firstText(n, "bizStep"),
		Disposition:         firstText(n, "disposition"),
	}

	var err error
	if ev.ReadPoint, err = firstID(n, "readPoint"); err != nil {
		mp.degrade(kind, index, err)
	}
	if ev.BizLocation, err = firstID(n, "bizLocation"); err != nil {
		mp.degrade(kind, index, err)
	}

	txs, err := bizTransactions(n)
	if err != nil {
		mp.degrade(kind, index, err)
	}
	if list, ok := n.First("bizTransactionList"); ok && list.Child("bizTransaction").Len() > 1 {
		mp.log.Debug("only the first bizTransaction is kept",
			zap.String("event", kind),
			zap.Int("index", index),
			zap.Int("count", list.Child("bizTransaction").Len()),
		)
	}
	ev.BizTransaction, ev.BizTransactionList = collapse(txs)

	return ev
}

func (mp *mapping) objectEvent(n *xmltree.Node, index int) ObjectEvent {
	ev := ObjectEvent{
		Event:  mp.common(n, tagObjectEvent, index),
		Action: firstText(n, "action"),
	}

	epc, list := collapse(epcs(n, "epcList"))
	if epc != nil {
		ev.EPC = *epc
	}
	ev.EPCList = list

	if ilmd, ok := n.First("ilmd"); ok {
		ev.ILMD = ilmd.Value()
	}
	return ev
}

func (mp *mapping) aggregationEvent(n *xmltree.Node, index int) AggregationEvent {
	ev := AggregationEvent{
		Event:     mp.common(n, tagAggregationEvent, index),
		Action:    firstText(n, "action"),
		ParentID:  firstText(n, "parentID"),
		ChildEPCs: epcs(n, "childEPCs"),
	}

	var err error
	if ev.ChildQuantityList, err = quantities(n, "childQuantityList"); err != nil {
		mp.degrade(tagAggregationEvent, index, err)
	}
	return ev
}

func (mp *mapping) transactionEvent(n *xmltree.Node, index int) TransactionEvent {
	ev := TransactionEvent{
		Event:    mp.common(n, tagTransactionEvent, index),
		Action:   firstText(n, "action"),
		ParentID: firstText(n, "parentID"),
	}

	var err error
	if ev.QuantityList, err = quantities(n, "quantityList"); err != nil {
		mp.degrade(tagTransactionEvent, index, err)
	}

	epc, list := collapse(epcs(n, "epcList"))
	if epc != nil {
		ev.EPC = *epc
	}
	ev.EPCList = list
	return ev
}
