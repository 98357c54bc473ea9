package yaetl

import (
	"context"
	"errors"
	"testing"
)

var errBoom = errors.New("boom")

func TestStats_CountsSeenAndDropped(t *testing.T) {
	f := NewFlow("counted")
	ex := &fakeExtractor{id: "src", records: []Record{{"n": 1}, {"n": 2}, {"n": 3}}, batchSize: 10}
	drop := NewQualifierFunc("even-only", func(_ context.Context, r Record) bool {
		n, _ := r["n"].(int)
		return n%2 == 0
	})
	sink := &fakeLoader{id: "sink"}
	f.From(ex).Qualify(drop).To(sink)

	_, _, err := f.Exec(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := f.Stats()
	if snap.Status != StatusClean {
		t.Fatalf("expected the snapshot to reflect the flow's actual terminal status, got %s", snap.Status)
	}

	byID := make(map[string]NodeStats)
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}

	if got := byID["src"].Seen; got != 3 {
		t.Fatalf("expected the extractor to have seen 3 records, got %d", got)
	}
	if got := byID["even-only"].Dropped; got != 2 {
		t.Fatalf("expected the qualifier to have dropped 2 records, got %d", got)
	}
	if got := byID["sink"].Seen; got != 1 {
		t.Fatalf("expected only 1 record to reach the sink, got %d", got)
	}
}

func TestStats_ReflectsExceptionStatus(t *testing.T) {
	f := NewFlow("failing")
	f.Transform(NewTransformerFunc("boom", func(_ context.Context, _ Record) (Result, error) {
		return Result{}, errBoom
	}))

	_, _, _ = f.Exec(context.Background(), Record{})
	if status := f.Stats().Status; status != StatusException {
		t.Fatalf("expected the snapshot to reflect exception status after a failing exec, got %s", status)
	}
}

func TestStats_ReflectsDirtyStatus(t *testing.T) {
	f := NewFlow("broken")
	f.Transform(NewTransformerFunc("breaker", func(_ context.Context, _ Record) (Result, error) {
		return DirectiveResult(Break()), nil
	}))

	_, _, _ = f.Exec(context.Background(), Record{})
	if status := f.Stats().Status; status != StatusDirty {
		t.Fatalf("expected the snapshot to reflect dirty status after a break, got %s", status)
	}
}

func TestStats_BeforeExecIsUnset(t *testing.T) {
	f := NewFlow("idle")
	if status := f.Stats().Status; status.IsSet() {
		t.Fatalf("expected an unset status before Exec is ever called, got %s", status)
	}
}
