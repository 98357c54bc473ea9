// Package extract provides concrete Extractor and Joinable implementations:
// an in-memory slice source, a paginated source whose Fetcher can be wrapped
// with the resilience decorators in this package, and a CSV source. None of these participate in the engine's control-flow
// contract; they only implement yaetl.Extractor / yaetl.Joinable.
package extract

import (
	"context"

	"github.com/fab2s/yaetl"
)

// Slice is an in-memory Extractor that yields the given records in fixed
// size batches. It never fails.
type Slice struct {
	id        string
	records   []yaetl.Record
	batchSize int
	pos       int
	batch     []yaetl.Record
}

// NewSlice builds a Slice extractor. A batchSize of 0 or less yields the
// whole slice as a single batch.
func NewSlice(id string, records []yaetl.Record, batchSize int) *Slice {
	if batchSize <= 0 {
		batchSize = len(records)
		if batchSize == 0 {
			batchSize = 1
		}
	}
	return &Slice{id: id, records: records, batchSize: batchSize}
}

func (s *Slice) ID() string { return s.id }

func (s *Slice) Extract(_ context.Context, _ any) (bool, error) {
	if s.pos >= len(s.records) {
		s.batch = nil
		return false, nil
	}
	end := s.pos + s.batchSize
	if end > len(s.records) {
		end = len(s.records)
	}
	s.batch = s.records[s.pos:end]
	s.pos = end
	return true, nil
}

func (s *Slice) Traversable(_ context.Context) yaetl.RecordIterator {
	return &sliceIterator{records: s.batch, idx: -1}
}

type sliceIterator struct {
	records []yaetl.Record
	idx     int
}

func (it *sliceIterator) Next(_ context.Context) bool {
	it.idx++
	return it.idx < len(it.records)
}

func (it *sliceIterator) Record() yaetl.Record {
	return it.records[it.idx]
}

func (it *sliceIterator) Err() error { return nil }

// KeyFunc extracts the join-key value from a record.
type KeyFunc func(yaetl.Record) any

// JoinableSlice is a Slice additionally indexed by KeyFunc for use as the
// subordinate extractor of a yaetl.Join. The index is rebuilt on every
// Extract call from the batch just pulled.
type JoinableSlice struct {
	*Slice
	key   KeyFunc
	index map[any]yaetl.Record
}

// NewJoinableSlice builds a JoinableSlice. key must return a unique,
// comparable value per record within any one batch.
func NewJoinableSlice(id string, records []yaetl.Record, batchSize int, key KeyFunc) *JoinableSlice {
	return &JoinableSlice{Slice: NewSlice(id, records, batchSize), key: key}
}

func (j *JoinableSlice) Extract(ctx context.Context, param any) (bool, error) {
	more, err := j.Slice.Extract(ctx, param)
	if err != nil {
		return false, err
	}
	j.index = make(map[any]yaetl.Record, len(j.Slice.batch))
	for _, r := range j.Slice.batch {
		j.index[j.key(r)] = r
	}
	return more, nil
}

func (j *JoinableSlice) Index() map[any]yaetl.Record {
	return j.index
}
