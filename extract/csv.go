package extract

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/fab2s/yaetl"
)

// CSV is an Extractor over an already-opened io.Reader of CSV data. The
// first row is read as a header and used as field names for every
// subsequent row. File handle acquisition, locking, BOM detection and
// character-encoding detection are out of scope (§2 of the specification);
// callers hand CSV an io.Reader already positioned at the data.
//
// Grounded on the decoder/iterator split used by format-agnostic record
// decoders, adapted here to the engine's batched Extract/Traversable
// contract instead of a standalone streaming iterator.
type CSV struct {
	id        string
	reader    *csv.Reader
	header    []string
	batchSize int
	batch     []yaetl.Record
	eof       bool
}

// NewCSV builds a CSV extractor. batchSize controls how many rows are
// pulled per Extract call; a non-positive value defaults to 1.
func NewCSV(id string, r io.Reader, batchSize int) (*CSV, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	return &CSV{id: id, reader: cr, header: header, batchSize: batchSize}, nil
}

func (c *CSV) ID() string { return c.id }

func (c *CSV) Extract(_ context.Context, _ any) (bool, error) {
	if c.eof {
		c.batch = nil
		return false, nil
	}

	batch := make([]yaetl.Record, 0, c.batchSize)
	for len(batch) < c.batchSize {
		row, err := c.reader.Read()
		if err == io.EOF {
			c.eof = true
			break
		}
		if err != nil {
			return false, err
		}
		batch = append(batch, rowToRecord(c.header, row))
	}
	c.batch = batch
	return len(batch) > 0, nil
}

func (c *CSV) Traversable(_ context.Context) yaetl.RecordIterator {
	return &sliceIterator{records: c.batch, idx: -1}
}

func rowToRecord(header, row []string) yaetl.Record {
	rec := make(yaetl.Record, len(header))
	for i, name := range header {
		if i < len(row) {
			rec[name] = row[i]
		}
	}
	return rec
}
