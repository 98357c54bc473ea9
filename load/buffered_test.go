package load

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fab2s/yaetl"
	"github.com/zoobzio/clockz"
)

func TestBuffered_FlushesOnMaxBatch(t *testing.T) {
	var mu sync.Mutex
	var written [][]yaetl.Record
	write := func(_ context.Context, batch []yaetl.Record) error {
		mu.Lock()
		defer mu.Unlock()
		cp := make([]yaetl.Record, len(batch))
		copy(cp, batch)
		written = append(written, cp)
		return nil
	}

	b := NewBuffered("b", 2, 0, 0, 1, clockz.RealClock, write)
	ctx := context.Background()
	for _, n := range []int{1, 2, 3} {
		if _, err := b.Exec(ctx, yaetl.Record{"n": n}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	mu.Lock()
	batches := len(written)
	mu.Unlock()
	if batches != 1 {
		t.Fatalf("expected exactly one self-triggered flush at maxBatch, got %d", batches)
	}

	if err := b.Flush(ctx, yaetl.StatusClean); err != nil {
		t.Fatalf("unexpected error on final flush: %v", err)
	}
	mu.Lock()
	batches = len(written)
	mu.Unlock()
	if batches != 2 {
		t.Fatalf("expected the final flush to drain the remaining record, got %d batches", batches)
	}
}

func TestBuffered_DiscardsBufferOnException(t *testing.T) {
	var calls int
	write := func(_ context.Context, _ []yaetl.Record) error {
		calls++
		return nil
	}
	b := NewBuffered("b", 10, 0, 0, 1, clockz.RealClock, write)
	ctx := context.Background()
	_, _ = b.Exec(ctx, yaetl.Record{"n": 1})

	if err := b.Flush(ctx, yaetl.StatusException); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected the buffered records to be discarded, not written, on exception, got %d write calls", calls)
	}
}

func TestBuffered_RetriesFailingWrite(t *testing.T) {
	var calls int
	write := func(_ context.Context, _ []yaetl.Record) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}
	b := NewBuffered("b", 1, 0, 0, 3, clockz.RealClock, write)
	ctx := context.Background()
	if _, err := b.Exec(ctx, yaetl.Record{"n": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected the write to be retried once before succeeding, got %d calls", calls)
	}
}

func TestBuffered_RateLimiterAllowsInitialBurst(t *testing.T) {
	var calls int
	write := func(_ context.Context, _ []yaetl.Record) error {
		calls++
		return nil
	}
	clock := clockz.NewFakeClock()
	b := NewBuffered("b", 1, 1, 1, 1, clock, write)
	ctx := context.Background()

	if _, err := b.Exec(ctx, yaetl.Record{"n": 1}); err != nil {
		t.Fatalf("unexpected error on first (unthrottled burst) record: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the first flush to consume the initial burst token, got %d calls", calls)
	}
}
