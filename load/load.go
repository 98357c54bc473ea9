// Package load provides concrete Loader implementations: an in-memory
// collector useful for tests and small jobs, and a buffered, rate-limited
// loader for bulk writes.
package load

import (
	"context"
	"sync"

	"github.com/fab2s/yaetl"
)

// Slice is a Loader that appends every record it sees to an in-memory
// slice, exposed via Records after the flow completes. Flush is a no-op:
// nothing is buffered.
type Slice struct {
	id      string
	mu      sync.Mutex
	records []yaetl.Record
}

func NewSlice(id string) *Slice {
	return &Slice{id: id}
}

func (s *Slice) ID() string { return s.id }

func (s *Slice) Exec(_ context.Context, rec yaetl.Record) (yaetl.Result, error) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return yaetl.ValueResult(rec), nil
}

func (s *Slice) Flush(_ context.Context, _ yaetl.FlowStatus) error {
	return nil
}

// Records returns a snapshot of every record loaded so far.
func (s *Slice) Records() []yaetl.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]yaetl.Record, len(s.records))
	copy(out, s.records)
	return out
}
