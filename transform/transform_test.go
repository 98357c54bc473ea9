package transform

import (
	"context"
	"testing"

	"github.com/fab2s/yaetl"
)

func TestRename_MovesFieldsLeavesOthers(t *testing.T) {
	r := NewRename("r", map[string]string{"old": "new"})
	res, err := r.Exec(context.Background(), yaetl.Record{"old": 1, "keep": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.Record["old"]; ok {
		t.Fatalf("expected old field to be removed, got %v", res.Record)
	}
	if res.Record["new"] != 1 || res.Record["keep"] != 2 {
		t.Fatalf("unexpected result: %v", res.Record)
	}
}

func TestDefault_FillsOnlyMissingFields(t *testing.T) {
	d := NewDefault("d", yaetl.Record{"currency": "USD", "tax": 0})
	res, err := d.Exec(context.Background(), yaetl.Record{"currency": "EUR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Record["currency"] != "EUR" {
		t.Fatalf("expected existing value to survive, got %v", res.Record["currency"])
	}
	if res.Record["tax"] != 0 {
		t.Fatalf("expected default to fill missing field, got %v", res.Record["tax"])
	}
}

func TestPick_KeepsOnlyNamedFields(t *testing.T) {
	p := NewPick("p", []string{"a", "c"})
	res, err := p.Exec(context.Background(), yaetl.Record{"a": 1, "b": 2, "c": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Record) != 2 || res.Record["a"] != 1 || res.Record["c"] != 3 {
		t.Fatalf("unexpected result: %v", res.Record)
	}
}

func TestCombine_BuildsTargetFieldFromSources(t *testing.T) {
	c := NewCombine("c", "full_name", []string{"first", "last"}, func(values []any) (any, error) {
		return values[0].(string) + " " + values[1].(string), nil
	})
	res, err := c.Exec(context.Background(), yaetl.Record{"first": "Ada", "last": "Lovelace"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Record["full_name"] != "Ada Lovelace" {
		t.Fatalf("unexpected result: %v", res.Record)
	}
}

func TestCombine_ErrorsOnMissingSourceField(t *testing.T) {
	c := NewCombine("c", "full_name", []string{"first", "last"}, func(values []any) (any, error) {
		return nil, nil
	})
	_, err := c.Exec(context.Background(), yaetl.Record{"first": "Ada"})
	if err == nil {
		t.Fatal("expected an error for a missing source field")
	}
}
