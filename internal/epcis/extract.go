package epcis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ginjaninja78/epcis-converter/internal/xmltree"
)

// firstText returns the text of the first occurrence of tag, or "" when the
// tag is absent.
func firstText(n *xmltree.Node, tag string) string {
	text, _ := n.FirstText(tag)
	return text
}

// firstID unwraps <tag><id>value</id></tag> into value. An absent tag is not
// an error; a tag without an id child is.
func firstID(n *xmltree.Node, tag string) (string, error) {
	container, ok := n.First(tag)
	if !ok {
		return "", nil
	}
	id, ok := container.FirstText("id")
	if !ok {
		return "", &fieldError{field: tag, reason: "missing id"}
	}
	return id, nil
}

// bizTransactions reads the bizTransactionList of an event. Only the first
// bizTransaction is kept, so the result has at most one entry.
func bizTransactions(n *xmltree.Node) ([]BizTransaction, error) {
	list, ok := n.First("bizTransactionList")
	if !ok {
		return nil, nil
	}
	tx, ok := list.First("bizTransaction")
	if !ok {
		return nil, nil
	}
	typ, ok := tx.Attr("type")
	if !ok {
		return nil, &fieldError{field: "bizTransactionList", reason: "bizTransaction without type attribute"}
	}
	return []BizTransaction{{ID: tx.Text, Type: typ}}, nil
}

// epcs returns the non-blank epc values nested under tag, or an empty list.
func epcs(n *xmltree.Node, tag string) []string {
	container, ok := n.First(tag)
	if !ok {
		return []string{}
	}
	out := []string{}
	for _, text := range container.Child("epc").Texts() {
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return out
}

// quantities reads every quantityElement nested under tag. A single bad
// element discards the whole list.
func quantities(n *xmltree.Node, tag string) ([]Quantity, error) {
	container, ok := n.First(tag)
	if !ok {
		return []Quantity{}, nil
	}

	elements := container.Child("quantityElement")
	out := make([]Quantity, 0, len(elements))
	for i, el := range elements {
		q, err := quantity(el)
		if err != nil {
			return []Quantity{}, &fieldError{
				field:  fmt.Sprintf("%s[%d]", tag, i),
				reason: err.Error(),
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func quantity(el *xmltree.Node) (Quantity, error) {
	class, ok := el.FirstText("epcClass")
	if !ok {
		return Quantity{}, fmt.Errorf("missing epcClass")
	}
	raw, ok := el.FirstText("quantity")
	if !ok {
		return Quantity{}, fmt.Errorf("missing quantity")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Quantity{}, fmt.Errorf("invalid quantity %q", raw)
	}
	unit, _ := el.FirstText("uom")

	return Quantity{EPCClass: class, Quantity: value, Unit: unit}, nil
}

// collapse applies the single-or-list rule: nothing for zero items, a single
// value for one, the list itself for two or more.
func collapse[T any](items []T) (*T, []T) {
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		one := items[0]
		return &one, nil
	default:
		return nil, items
	}
}
