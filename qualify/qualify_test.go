package qualify

import (
	"context"
	"testing"

	"github.com/fab2s/yaetl"
)

func TestPredicate_AcceptsAndDrops(t *testing.T) {
	p := NewPredicate("p", func(r yaetl.Record) bool {
		n, _ := r["n"].(int)
		return n > 1
	})
	ctx := context.Background()

	res, err := p.Qualify(ctx, yaetl.Record{"n": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Directive.IsZero() {
		t.Fatalf("expected an accepted record to carry no directive, got %+v", res.Directive)
	}

	res, err = p.Qualify(ctx, yaetl.Record{"n": 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Directive.IsZero() {
		t.Fatal("expected a rejected record to carry a continue directive")
	}
}

type taggedShape struct {
	Name string `validate:"required"`
}

func TestValidate_AcceptsValidRecord(t *testing.T) {
	v := NewValidate("v", func(r yaetl.Record) (any, error) {
		name, _ := r["name"].(string)
		return taggedShape{Name: name}, nil
	}, false)

	res, err := v.Qualify(context.Background(), yaetl.Record{"name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Directive.IsZero() {
		t.Fatalf("expected a valid record to pass through, got %+v", res.Directive)
	}
}

func TestValidate_NonStrictDropsInvalidRecord(t *testing.T) {
	v := NewValidate("v", func(r yaetl.Record) (any, error) {
		name, _ := r["name"].(string)
		return taggedShape{Name: name}, nil
	}, false)

	res, err := v.Qualify(context.Background(), yaetl.Record{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Directive.IsZero() {
		t.Fatal("expected an invalid record to be dropped via a continue directive")
	}
}

func TestValidate_StrictRaisesError(t *testing.T) {
	v := NewValidate("v", func(r yaetl.Record) (any, error) {
		name, _ := r["name"].(string)
		return taggedShape{Name: name}, nil
	}, true)

	_, err := v.Qualify(context.Background(), yaetl.Record{})
	if err == nil {
		t.Fatal("expected a strict validation failure to raise an error")
	}
}

func TestValidate_MapperErrorIsPropagated(t *testing.T) {
	v := NewValidate("v", func(_ yaetl.Record) (any, error) {
		return nil, context.DeadlineExceeded
	}, false)

	_, err := v.Qualify(context.Background(), yaetl.Record{})
	if err == nil {
		t.Fatal("expected the mapper's error to propagate")
	}
}
