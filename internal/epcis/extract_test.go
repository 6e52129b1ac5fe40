package epcis

import (
	"reflect"
	"testing"
)

func TestCollapse(t *testing.T) {
	one, many := collapse([]string{})
	if one != nil || many != nil {
		t.Errorf("zero items: got %v %v", one, many)
	}

	one, many = collapse([]string{"a"})
	if one == nil || *one != "a" || many != nil {
		t.Errorf("one item: got %v %v", one, many)
	}

	one, many = collapse([]string{"a", "b"})
	if one != nil || !reflect.DeepEqual(many, []string{"a", "b"}) {
		t.Errorf("two items: got %v %v", one, many)
	}
}

func TestCollapse_CopiesSingle(t *testing.T) {
	items := []BizTransaction{{ID: "x", Type: "po"}}
	one, _ := collapse(items)
	items[0].ID = "changed"
	if one.ID != "x" {
		t.Error("single value should not alias the source slice")
	}
}
