package extract

import (
	"context"
	"time"

	"github.com/fab2s/yaetl"
	"github.com/zoobzio/clockz"
)

// Paged is an Extractor over a source that is queried a page at a time,
// such as a database cursor or a rate-limited HTTP API. It owns no
// resilience itself — Fetcher is expected to already be wrapped with
// WithRetry/WithBackoff/WithTimeout/WithCircuitBreaker as needed, composed
// by the caller at construction time.
type Paged struct {
	id       string
	fetch    Fetcher
	pageSize int
	offset   int
	batch    []yaetl.Record
	done     bool
}

// NewPaged builds a Paged extractor calling fetch for pageSize records at a
// time, starting at offset 0. param passed to Extract is ignored; Paged
// always resumes from its own internal offset, so that From/continuation
// chaining threads nothing but a starting trigger through it.
func NewPaged(id string, pageSize int, fetch Fetcher) *Paged {
	return &Paged{id: id, fetch: fetch, pageSize: pageSize}
}

// Resilient is a convenience constructor that wraps fetch with the common
// stack of retry, timeout and circuit-breaking used for flaky network or
// database sources (§4.7 of the specification).
func Resilient(id string, pageSize, maxAttempts int, timeout time.Duration, clock clockz.Clock, fetch Fetcher) *Paged {
	wrapped := WithCircuitBreaker(id, maxAttempts, timeout*time.Duration(maxAttempts), clock,
		WithTimeout(id, timeout, clock,
			WithRetry(id, maxAttempts, fetch)))
	return NewPaged(id, pageSize, wrapped)
}

func (p *Paged) ID() string { return p.id }

func (p *Paged) Extract(ctx context.Context, _ any) (bool, error) {
	if p.done {
		p.batch = nil
		return false, nil
	}
	page, err := p.fetch(ctx, p.offset, p.pageSize)
	if err != nil {
		return false, err
	}
	p.batch = page
	p.offset += len(page)
	if len(page) < p.pageSize {
		p.done = true
	}
	return len(page) > 0, nil
}

func (p *Paged) Traversable(_ context.Context) yaetl.RecordIterator {
	return &sliceIterator{records: p.batch, idx: -1}
}
