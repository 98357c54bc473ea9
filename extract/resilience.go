package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fab2s/yaetl"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Fetcher pulls one page of records starting at offset, at most limit long.
// A page shorter than limit (including empty) signals the source is
// exhausted. Resilience is a per-node concern (§5, §9 of the specification):
// the engine never retries, times out, or circuit-breaks on a node's
// behalf, so callers compose these decorators around the Fetcher they hand
// to Paged (Resilient does so for retry, timeout and circuit-breaking).
type Fetcher func(ctx context.Context, offset, limit int) ([]yaetl.Record, error)

// Signals, fields, metrics and spans for the resilience decorators, named
// the same way as the reference connector library's per-connector
// observability constants.
const (
	signalFetchRetryAttempt   capitan.Signal = "extract.fetch.retry-attempt"
	signalFetchRetryExhausted capitan.Signal = "extract.fetch.retry-exhausted"
	signalFetchBackoffWaiting capitan.Signal = "extract.fetch.backoff-waiting"
	signalFetchTimeout        capitan.Signal = "extract.fetch.timeout"
	signalFetchCircuitOpen    capitan.Signal = "extract.fetch.circuit-open"
	signalFetchCircuitClosed  capitan.Signal = "extract.fetch.circuit-closed"
)

var (
	fieldFetcherID = capitan.NewStringKey("fetcher_id")
	fieldAttempt   = capitan.NewIntKey("attempt")
	fieldError     = capitan.NewStringKey("error")
	fieldDelay     = capitan.NewFloat64Key("delay_seconds")
)

const (
	spanFetchRetry   = tracez.Key("extract.fetch.retry")
	spanFetchBackoff = tracez.Key("extract.fetch.backoff")
	spanFetchTimeout = tracez.Key("extract.fetch.timeout")
	spanFetchCircuit = tracez.Key("extract.fetch.circuit")
	tagFetchAttempt  = tracez.Tag("attempt")
	tagFetchSuccess  = tracez.Tag("success")
	tagFetchCircuit  = tracez.Tag("state")

	metricFetchRetry   = metricz.Key("extract.fetch.retries")
	metricFetchFail    = metricz.Key("extract.fetch.failures")
	metricFetchCircuit = metricz.Key("extract.fetch.circuit_rejections")
)

// RetryEvent describes one attempt made by WithRetry or WithBackoff. Each
// decorator emits it only when its own hook set has listeners; that hook
// set is private to the decorator and no listener can be registered on it,
// so no RetryEvent reaches callers.
type RetryEvent struct {
	FetcherID     string
	AttemptNumber int
	MaxAttempts   int
	Success       bool
	Err           error
	Duration      time.Duration
	Timestamp     time.Time
}

// WithRetry wraps next with immediate, bounded retries — no delay between
// attempts, suited to quick transient failures (e.g. a pooled connection
// momentarily exhausted). Grounded on the reference library's Retry
// connector, adapted from a Chainable[T] processor to a page Fetcher.
func WithRetry(id string, maxAttempts int, next Fetcher) Fetcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	registry := metricz.New()
	registry.Counter(metricFetchRetry)
	registry.Counter(metricFetchFail)
	tracer := tracez.New()
	hooks := hookz.New[RetryEvent]()

	return func(ctx context.Context, offset, limit int) ([]yaetl.Record, error) {
		ctx, span := tracer.StartSpan(ctx, spanFetchRetry)
		defer span.Finish()

		var lastErr error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			start := time.Now()
			page, err := next(ctx, offset, limit)
			duration := time.Since(start)

			if hooks.ListenerCount(RetryEventAttemptKey) > 0 {
				_ = hooks.Emit(ctx, RetryEventAttemptKey, RetryEvent{ //nolint:errcheck
					FetcherID: id, AttemptNumber: attempt, MaxAttempts: maxAttempts,
					Success: err == nil, Err: err, Duration: duration, Timestamp: time.Now(),
				})
			}

			if err == nil {
				span.SetTag(tagFetchSuccess, "true")
				span.SetTag(tagFetchAttempt, fmt.Sprintf("%d", attempt))
				return page, nil
			}
			lastErr = err
			registry.Counter(metricFetchRetry).Inc()
			capitan.Warn(ctx, signalFetchRetryAttempt, fieldFetcherID.Field(id), fieldAttempt.Field(attempt), fieldError.Field(err.Error()))

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		registry.Counter(metricFetchFail).Inc()
		span.SetTag(tagFetchSuccess, "false")
		capitan.Error(ctx, signalFetchRetryExhausted, fieldFetcherID.Field(id), fieldAttempt.Field(maxAttempts), fieldError.Field(lastErr.Error()))
		return nil, fmt.Errorf("extract: %s: exhausted %d attempts: %w", id, maxAttempts, lastErr)
	}
}

// RetryEventAttemptKey is the hook key under which WithRetry and WithBackoff
// emit a RetryEvent per attempt when their private hook set has listeners.
const RetryEventAttemptKey = hookz.Key("extract.retry.attempt")

// WithBackoff is like WithRetry but waits baseDelay*attempt between
// attempts (linear backoff), sleeping via clock so tests can substitute a
// fake one instead of a real timer.
func WithBackoff(id string, maxAttempts int, baseDelay time.Duration, clock clockz.Clock, next Fetcher) Fetcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	tracer := tracez.New()
	hooks := hookz.New[RetryEvent]()

	return func(ctx context.Context, offset, limit int) ([]yaetl.Record, error) {
		ctx, span := tracer.StartSpan(ctx, spanFetchBackoff)
		defer span.Finish()

		var lastErr error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			page, err := next(ctx, offset, limit)
			if hooks.ListenerCount(RetryEventAttemptKey) > 0 {
				_ = hooks.Emit(ctx, RetryEventAttemptKey, RetryEvent{ //nolint:errcheck
					FetcherID: id, AttemptNumber: attempt, MaxAttempts: maxAttempts, Success: err == nil, Err: err, Timestamp: time.Now(),
				})
			}
			if err == nil {
				span.SetTag(tagFetchSuccess, "true")
				return page, nil
			}
			lastErr = err
			if attempt == maxAttempts {
				break
			}

			delay := baseDelay * time.Duration(attempt)
			capitan.Warn(ctx, signalFetchBackoffWaiting, fieldFetcherID.Field(id), fieldDelay.Field(delay.Seconds()))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-clock.After(delay):
			}
		}
		span.SetTag(tagFetchSuccess, "false")
		return nil, fmt.Errorf("extract: %s: exhausted %d attempts: %w", id, maxAttempts, lastErr)
	}
}

// WithTimeout bounds a single fetch call to d. Grounded on the reference
// library's Timeout connector.
func WithTimeout(id string, d time.Duration, clock clockz.Clock, next Fetcher) Fetcher {
	if clock == nil {
		clock = clockz.RealClock
	}
	tracer := tracez.New()

	return func(ctx context.Context, offset, limit int) ([]yaetl.Record, error) {
		ctx, cancel := clock.WithTimeout(ctx, d)
		defer cancel()

		_, span := tracer.StartSpan(ctx, spanFetchTimeout)
		defer span.Finish()

		type result struct {
			page []yaetl.Record
			err  error
		}
		done := make(chan result, 1)
		go func() {
			page, err := next(ctx, offset, limit)
			done <- result{page, err}
		}()

		select {
		case <-ctx.Done():
			capitan.Error(ctx, signalFetchTimeout, fieldFetcherID.Field(id))
			return nil, fmt.Errorf("extract: %s: timed out after %s", id, d)
		case r := <-done:
			return r.page, r.err
		}
	}
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// WithCircuitBreaker wraps next so that after failureThreshold consecutive
// failures, calls are rejected outright until resetTimeout elapses, at
// which point a single probing call is allowed through (half-open).
// Grounded on the reference library's CircuitBreaker connector.
func WithCircuitBreaker(id string, failureThreshold int, resetTimeout time.Duration, clock clockz.Clock, next Fetcher) Fetcher {
	if clock == nil {
		clock = clockz.RealClock
	}
	var mu sync.Mutex
	state := circuitClosed
	failures := 0
	var lastFail time.Time
	registry := metricz.New()
	registry.Counter(metricFetchCircuit)
	tracer := tracez.New()

	return func(ctx context.Context, offset, limit int) ([]yaetl.Record, error) {
		ctx, span := tracer.StartSpan(ctx, spanFetchCircuit)
		defer span.Finish()

		mu.Lock()
		if state == circuitOpen && clock.Since(lastFail) > resetTimeout {
			state = circuitHalfOpen
		}
		current := state
		mu.Unlock()

		if current == circuitOpen {
			registry.Counter(metricFetchCircuit).Inc()
			span.SetTag(tagFetchCircuit, "open")
			capitan.Error(ctx, signalFetchCircuitOpen, fieldFetcherID.Field(id))
			return nil, fmt.Errorf("extract: %s: circuit breaker open", id)
		}

		page, err := next(ctx, offset, limit)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures++
			lastFail = clock.Now()
			if current == circuitHalfOpen || failures >= failureThreshold {
				state = circuitOpen
				span.SetTag(tagFetchCircuit, "open")
				capitan.Error(ctx, signalFetchCircuitOpen, fieldFetcherID.Field(id), fieldError.Field(err.Error()))
			}
			return nil, err
		}
		if state != circuitClosed {
			capitan.Info(ctx, signalFetchCircuitClosed, fieldFetcherID.Field(id))
		}
		span.SetTag(tagFetchCircuit, "closed")
		state = circuitClosed
		failures = 0
		return page, nil
	}
}
