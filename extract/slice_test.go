package extract

import (
	"context"
	"testing"

	"github.com/fab2s/yaetl"
)

func TestSlice_BatchesAndExhausts(t *testing.T) {
	s := NewSlice("s", []yaetl.Record{{"n": 1}, {"n": 2}, {"n": 3}}, 2)
	ctx := context.Background()

	more, err := s.Extract(ctx, nil)
	if err != nil || !more {
		t.Fatalf("expected first batch, got more=%v err=%v", more, err)
	}
	it := s.Traversable(ctx)
	var got []yaetl.Record
	for it.Next(ctx) {
		got = append(got, it.Record())
	}
	if len(got) != 2 {
		t.Fatalf("expected a batch of 2, got %d", len(got))
	}

	more, err = s.Extract(ctx, nil)
	if err != nil || !more {
		t.Fatalf("expected second batch, got more=%v err=%v", more, err)
	}
	it = s.Traversable(ctx)
	got = nil
	for it.Next(ctx) {
		got = append(got, it.Record())
	}
	if len(got) != 1 {
		t.Fatalf("expected the remaining 1 record, got %d", len(got))
	}

	more, err = s.Extract(ctx, nil)
	if err != nil || more {
		t.Fatalf("expected exhaustion, got more=%v err=%v", more, err)
	}
}

func TestJoinableSlice_IndexRebuildsPerBatch(t *testing.T) {
	j := NewJoinableSlice("j", []yaetl.Record{{"id": 1, "v": "a"}, {"id": 2, "v": "b"}}, 10, func(r yaetl.Record) any {
		return r["id"]
	})
	ctx := context.Background()
	if _, err := j.Extract(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := j.Index()
	if len(idx) != 2 || idx[1]["v"] != "a" || idx[2]["v"] != "b" {
		t.Fatalf("unexpected index contents: %v", idx)
	}

	more, err := j.Extract(ctx, nil)
	if err != nil || more {
		t.Fatalf("expected exhaustion, got more=%v err=%v", more, err)
	}
}
