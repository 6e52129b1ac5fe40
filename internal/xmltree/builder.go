package xmltree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// ErrMalformedXML is returned when the input is not a well-formed document.
var ErrMalformedXML = errors.New("xmltree: malformed XML")

// Options controls how the tree is built.
type Options struct {
	// Trim removes leading and trailing whitespace from text content.
	Trim bool

	// KeepNamespaces keeps namespace declarations in Attrs, keyed "xmlns"
	// or "xmlns:prefix".
	KeepNamespaces bool
}

// DefaultOptions returns the options used by Parse and ParseString.
func DefaultOptions() Options {
	return Options{Trim: true}
}

// Builder turns XML text into a Node tree. A Builder holds no per-document
// state and can be shared between goroutines.
type Builder struct {
	opts Options
}

// NewBuilder returns a Builder using opts.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

var defaultBuilder = NewBuilder(DefaultOptions())

// Parse builds a tree from r with the default options.
func Parse(r io.Reader) (*Node, error) {
	return defaultBuilder.Build(r)
}

// ParseString builds a tree from s with the default options.
func ParseString(s string) (*Node, error) {
	return defaultBuilder.Build(strings.NewReader(s))
}

// Build reads the whole document from r. The returned node is a synthetic
// document node whose only child is the root element, keyed by its local name.
func (b *Builder) Build(r io.Reader) (*Node, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}

	root, err := singleRoot(doc)
	if err != nil {
		return nil, err
	}

	top := b.convert(root)
	return &Node{
		Children: map[string]Seq{top.Name: {top}},
	}, nil
}

// BuildString is Build for an in-memory document.
func (b *Builder) BuildString(s string) (*Node, error) {
	return b.Build(strings.NewReader(s))
}

// singleRoot enforces what etree leaves to the caller: exactly one root
// element and nothing but whitespace, comments, processing instructions and
// directives around it.
func singleRoot(doc *etree.Document) (*etree.Element, error) {
	var root *etree.Element
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if root != nil {
				return nil, fmt.Errorf("%w: second root element <%s>", ErrMalformedXML, t.FullTag())
			}
			root = t
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return nil, fmt.Errorf("%w: character data outside the root element", ErrMalformedXML)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: document has no root element", ErrMalformedXML)
	}
	return root, nil
}

func (b *Builder) convert(el *etree.Element) *Node {
	n := &Node{
		Name:  el.Tag,
		Space: el.Space,
		Text:  b.text(el),
	}

	if len(el.Attr) > 0 {
		n.qattrs = make(map[string]string, len(el.Attr))
	}
	for _, a := range el.Attr {
		n.qattrs[a.FullKey()] = a.Value

		key := a.Key
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			if !b.opts.KeepNamespaces {
				continue
			}
			key = a.FullKey()
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]string, len(el.Attr))
		}
		n.Attrs[key] = a.Value
	}

	for _, child := range el.ChildElements() {
		if n.Children == nil {
			n.Children = make(map[string]Seq)
		}
		n.Children[child.Tag] = append(n.Children[child.Tag], b.convert(child))
	}

	return n
}

// text concatenates every character data token directly under el, so mixed
// content keeps the text that follows child elements too.
func (b *Builder) text(el *etree.Element) string {
	var sb strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	if b.opts.Trim {
		return strings.TrimSpace(sb.String())
	}
	return sb.String()
}
