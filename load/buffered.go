package load

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fab2s/yaetl"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// WriteFunc commits one batch of records — to a database, a bulk API, a
// file — succeeding or failing as a whole.
type WriteFunc func(ctx context.Context, batch []yaetl.Record) error

const (
	signalBufferedFlush    capitan.Signal = "load.buffered.flush"
	signalBufferedDiscard  capitan.Signal = "load.buffered.discard"
	signalBufferedThrottle capitan.Signal = "load.buffered.throttled"
)

var (
	fieldLoaderID     = capitan.NewStringKey("loader_id")
	fieldBatchSize    = capitan.NewIntKey("batch_size")
	fieldFlushedCount = capitan.NewIntKey("flushed_total")
)

const (
	spanBufferedFlush = tracez.Key("load.buffered.flush")
	tagBatchSize      = tracez.Tag("batch_size")
	tagSuccess        = tracez.Tag("success")

	metricFlushes   = metricz.Key("load.buffered.flushes")
	metricDiscarded = metricz.Key("load.buffered.discarded")
	metricWritten   = metricz.Key("load.buffered.written")
)

// Buffered is a Loader that accumulates records until either maxBatch is
// reached or Flush is called, committing each batch with write. A rate
// limiter throttles how often write may be invoked, protecting a
// bulk-loading target from being hammered by many small flushes; a bounded
// retry covers transient write failures. Both are internal, per-node
// resilience per §4.7/§9 of the specification — the engine orchestrates
// neither.
//
// Grounded on the reference connector library's token-bucket RateLimiter,
// adapted from gating a per-record Process call to gating a per-batch write
// call.
type Buffered struct {
	id       string
	write    WriteFunc
	maxBatch int
	clock    clockz.Clock

	mu      sync.Mutex
	buffer  []yaetl.Record
	written int

	limiter *tokenBucket

	maxAttempts int

	metrics *metricz.Registry
	tracer  *tracez.Tracer
}

// NewBuffered builds a Buffered loader. ratePerSecond/burst configure the
// flush-rate limiter (0 burst disables limiting); maxAttempts bounds
// retries of a failing write (minimum 1).
func NewBuffered(id string, maxBatch int, ratePerSecond float64, burst, maxAttempts int, clock clockz.Clock, write WriteFunc) *Buffered {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	registry := metricz.New()
	registry.Counter(metricFlushes)
	registry.Counter(metricDiscarded)
	registry.Counter(metricWritten)

	var limiter *tokenBucket
	if burst > 0 {
		limiter = newTokenBucket(ratePerSecond, burst, clock)
	}

	return &Buffered{
		id:          id,
		write:       write,
		maxBatch:    maxBatch,
		clock:       clock,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		metrics:     registry,
		tracer:      tracez.New(),
	}
}

func (b *Buffered) ID() string { return b.id }

// Exec buffers rec, self-triggering a flush once maxBatch is reached — the
// "self-triggered mid-flow flush" path of the deferred-flush contract,
// distinct from the engine-driven final flush at the end of Exec.
func (b *Buffered) Exec(ctx context.Context, rec yaetl.Record) (yaetl.Result, error) {
	b.mu.Lock()
	b.buffer = append(b.buffer, rec)
	full := len(b.buffer) >= b.maxBatch
	b.mu.Unlock()

	if full {
		if err := b.drain(ctx); err != nil {
			return yaetl.Result{}, err
		}
	}
	return yaetl.ValueResult(rec), nil
}

// Flush is the engine-driven path: on clean/dirty it drains any remaining
// buffered records, on exception it discards them so no partial batch is
// committed after a failure elsewhere in the flow.
func (b *Buffered) Flush(ctx context.Context, status yaetl.FlowStatus) error {
	if status == yaetl.StatusException {
		b.mu.Lock()
		discarded := len(b.buffer)
		b.buffer = nil
		b.mu.Unlock()
		if discarded > 0 {
			b.metrics.Counter(metricDiscarded).Add(float64(discarded))
			capitan.Warn(ctx, signalBufferedDiscard, fieldLoaderID.Field(b.id), fieldBatchSize.Field(discarded))
		}
		return nil
	}
	return b.drain(ctx)
}

func (b *Buffered) drain(ctx context.Context) error {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.buffer
	b.buffer = nil
	b.mu.Unlock()

	if b.limiter != nil {
		if err := b.limiter.wait(ctx); err != nil {
			return err
		}
	}

	ctx, span := b.tracer.StartSpan(ctx, spanBufferedFlush)
	defer span.Finish()
	span.SetTag(tagBatchSize, fmt.Sprintf("%d", len(batch)))

	var lastErr error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		if err := b.write(ctx, batch); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		b.metrics.Counter(metricFlushes).Inc()
		b.metrics.Counter(metricWritten).Add(float64(len(batch)))
		span.SetTag(tagSuccess, "true")
		b.mu.Lock()
		b.written += len(batch)
		written := b.written
		b.mu.Unlock()
		capitan.Info(ctx, signalBufferedFlush, fieldLoaderID.Field(b.id), fieldBatchSize.Field(len(batch)), fieldFlushedCount.Field(written))
		return nil
	}
	span.SetTag(tagSuccess, "false")
	return fmt.Errorf("load: %s: write failed after %d attempts: %w", b.id, b.maxAttempts, lastErr)
}

// tokenBucket is a minimal token-bucket rate limiter gating Buffered's
// flush calls, adapted from the reference connector library's per-record
// RateLimiter to a per-batch cadence.
type tokenBucket struct {
	mu         sync.Mutex
	rate       float64
	tokens     float64
	burst      int
	lastRefill time.Time
	clock      clockz.Clock
}

func newTokenBucket(ratePerSecond float64, burst int, clock clockz.Clock) *tokenBucket {
	return &tokenBucket{rate: ratePerSecond, tokens: float64(burst), burst: burst, lastRefill: clock.Now(), clock: clock}
}

func (t *tokenBucket) refill() {
	now := t.clock.Now()
	elapsed := now.Sub(t.lastRefill).Seconds()
	t.lastRefill = now
	if elapsed <= 0 {
		return
	}
	t.tokens = math.Min(float64(t.burst), t.tokens+elapsed*t.rate)
}

func (t *tokenBucket) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		t.refill()
		if t.tokens >= 1.0 {
			t.tokens -= 1.0
			t.mu.Unlock()
			return nil
		}
		needed := 1.0 - t.tokens
		var delay time.Duration
		if t.rate > 0 {
			delay = time.Duration(needed / t.rate * float64(time.Second))
		}
		t.mu.Unlock()

		capitan.Info(ctx, signalBufferedThrottle, fieldDelaySeconds.Field(delay.Seconds()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(delay):
		}
	}
}

var fieldDelaySeconds = capitan.NewFloat64Key("delay_seconds")
