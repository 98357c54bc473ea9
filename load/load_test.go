package load

import (
	"context"
	"testing"

	"github.com/fab2s/yaetl"
)

func TestSlice_CollectsRecordsAndFlushIsNoop(t *testing.T) {
	s := NewSlice("s")
	ctx := context.Background()
	if _, err := s.Exec(ctx, yaetl.Record{"n": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Exec(ctx, yaetl.Record{"n": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Flush(ctx, yaetl.StatusClean); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if got := s.Records(); len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestSlice_RecordsReturnsASnapshotCopy(t *testing.T) {
	s := NewSlice("s")
	ctx := context.Background()
	_, _ = s.Exec(ctx, yaetl.Record{"n": 1})

	snap := s.Records()
	_, _ = s.Exec(ctx, yaetl.Record{"n": 2})

	if len(snap) != 1 {
		t.Fatalf("expected the earlier snapshot to remain unaffected by later writes, got %d", len(snap))
	}
}
