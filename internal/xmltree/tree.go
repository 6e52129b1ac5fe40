// Package xmltree builds a generic, uniformly shaped tree from an XML
// document. Every child element is stored as an ordered sequence of its
// occurrences, even when it appears only once, so callers can walk any
// document with a single traversal style.
package xmltree

import (
	"sort"
)

// Keys used by Node.Value for the attribute and text slots.
const (
	AttrKey = "$"
	TextKey = "_"
)

// Node is one instantiation of an element.
type Node struct {
	// Name is the local name of the element. The synthetic document node
	// returned by Parse has an empty name.
	Name string

	// Space is the namespace prefix as written in the document, or "".
	Space string

	// Attrs holds the element attributes keyed by local name. Namespace
	// declarations are not kept.
	Attrs map[string]string

	// Text is the character data directly under the element.
	Text string

	// Children maps a child local name to its occurrences in document order.
	Children map[string]Seq

	// qattrs holds every attribute, namespace declarations included, under
	// its name as written. Value renders these when set.
	qattrs map[string]string
}

// QName returns the element name as written, prefix included.
func (n *Node) QName() string {
	if n == nil {
		return ""
	}
	if n.Space == "" {
		return n.Name
	}
	return n.Space + ":" + n.Name
}

// Seq is the ordered list of occurrences of one tag under a parent.
type Seq []*Node

// First returns the first occurrence, if any.
func (s Seq) First() (*Node, bool) {
	if len(s) == 0 || s[0] == nil {
		return nil, false
	}
	return s[0], true
}

// Len returns the number of occurrences.
func (s Seq) Len() int {
	return len(s)
}

// Texts returns the text of every occurrence in order.
func (s Seq) Texts() []string {
	out := make([]string, 0, len(s))
	for _, n := range s {
		if n == nil {
			continue
		}
		out = append(out, n.Text)
	}
	return out
}

// Child returns every occurrence of tag directly under n. It is safe to call
// on a nil node.
func (n *Node) Child(tag string) Seq {
	if n == nil {
		return nil
	}
	return n.Children[tag]
}

// First returns the first occurrence of tag directly under n.
func (n *Node) First(tag string) (*Node, bool) {
	return n.Child(tag).First()
}

// FirstText returns the text of the first occurrence of tag under n.
func (n *Node) FirstText(tag string) (string, bool) {
	child, ok := n.First(tag)
	if !ok {
		return "", false
	}
	return child.Text, true
}

// Path descends through the first occurrence of each tag in turn.
func (n *Node) Path(tags ...string) (*Node, bool) {
	cur := n
	for _, tag := range tags {
		next, ok := cur.First(tag)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// HasChildren reports whether n has at least one child element.
func (n *Node) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// Tags returns the child tag names in sorted order.
func (n *Node) Tags() []string {
	if n == nil {
		return nil
	}
	tags := make([]string, 0, len(n.Children))
	for tag := range n.Children {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Value renders n as plain Go values suitable for JSON encoding. Names keep
// their namespace prefix as written, so elements from different vocabularies
// with the same local name stay apart. An element with neither attributes
// nor children renders as its text. Any other element renders as a map with
// the attributes (namespace declarations included) under AttrKey, non-empty
// text under TextKey and one []any per child name.
func (n *Node) Value() any {
	if n == nil {
		return nil
	}
	attrs := n.qattrs
	if attrs == nil {
		attrs = n.Attrs
	}
	if len(attrs) == 0 && len(n.Children) == 0 {
		return n.Text
	}

	out := make(map[string]any, len(n.Children)+2)
	if len(attrs) > 0 {
		rendered := make(map[string]any, len(attrs))
		for k, v := range attrs {
			rendered[k] = v
		}
		out[AttrKey] = rendered
	}
	if n.Text != "" {
		out[TextKey] = n.Text
	}
	for _, seq := range n.Children {
		for _, child := range seq {
			if child == nil {
				continue
			}
			name := child.QName()
			items, _ := out[name].([]any)
			out[name] = append(items, child.Value())
		}
	}
	return out
}
