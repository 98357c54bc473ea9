package yaetl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
)

// FlowEvent is the payload delivered to every lifecycle callback registered
// on a Flow. A single event type shared across OnStart/OnFlowProgress/
// OnSuccess/OnFail mirrors the reference pipeline library's convention of one
// event struct per connector, disambiguated by which hook key fired.
type FlowEvent struct {
	FlowName    string
	NodeID      string
	RecordsSeen int64
	Status      FlowStatus
	Err         error
	Duration    time.Duration
	Timestamp   time.Time
}

// NodeStats holds the per-node counters reported by Flow.Stats.
type NodeStats struct {
	ID       string
	Kind     string
	Seen     int64
	Dropped  int64
	Errors   int64
	JoinHits int64
	JoinMiss int64
}

// FlowStats is the structured snapshot returned by Flow.Stats, including a
// human-readable summary in Report.
type FlowStats struct {
	FlowName string
	Status   FlowStatus
	Nodes    []NodeStats
	Report   string
}

// stats accumulates per-node counters for one Flow. It is intentionally a
// plain mutex-guarded map rather than routing every increment through
// metricz, since metricz.Registry counters are process-wide named series —
// ideal for the flow-level totals in signals.go, not for a dynamic per-node
// breakdown keyed by node id chosen at composition time.
type stats struct {
	mu    sync.Mutex
	order []string
	nodes map[string]*NodeStats
}

func newStats() *stats {
	return &stats{nodes: make(map[string]*NodeStats)}
}

func (s *stats) register(id, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; ok {
		return
	}
	s.order = append(s.order, id)
	s.nodes[id] = &NodeStats{ID: id, Kind: kind}
}

func (s *stats) seen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.Seen++
	}
}

func (s *stats) dropped(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.Dropped++
	}
}

func (s *stats) errored(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.Errors++
	}
}

func (s *stats) joinHit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.JoinHits++
	}
}

func (s *stats) joinMiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.JoinMiss++
	}
}

func (s *stats) snapshot(flowName string, status FlowStatus) FlowStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := FlowStats{FlowName: flowName, Status: status}
	var b strings.Builder
	fmt.Fprintf(&b, "flow %q: status=%s\n", flowName, status)
	for _, id := range s.order {
		n := *s.nodes[id]
		out.Nodes = append(out.Nodes, n)
		fmt.Fprintf(&b, "  %-24s kind=%-12s seen=%-6d dropped=%-6d errors=%-4d join_hits=%-4d join_miss=%-4d\n",
			n.ID, n.Kind, n.Seen, n.Dropped, n.Errors, n.JoinHits, n.JoinMiss)
	}
	out.Report = b.String()
	return out
}

// OnStart registers a handler invoked once when Exec begins.
func (f *Flow) OnStart(handler func(FlowEvent) error) error {
	_, err := f.hooks.Hook(EventOnStart, func(_ context.Context, e FlowEvent) error { return handler(e) })
	return err
}

// OnFlowProgress registers a handler invoked after each extracted record
// completes its inner walk without a break, error or propagated directive,
// once per loader during the final flush (NodeID is the loader's id), and,
// on a Flow embedded as a branch, before each run of that branch.
func (f *Flow) OnFlowProgress(handler func(FlowEvent) error) error {
	_, err := f.hooks.Hook(EventOnFlowProgress, func(_ context.Context, e FlowEvent) error { return handler(e) })
	return err
}

// OnSuccess registers a handler invoked once Exec completes without a node
// raising an unrecoverable error (status clean or dirty).
func (f *Flow) OnSuccess(handler func(FlowEvent) error) error {
	_, err := f.hooks.Hook(EventOnSuccess, func(_ context.Context, e FlowEvent) error { return handler(e) })
	return err
}

// OnFail registers a handler invoked when a node raises an unrecoverable
// error.
func (f *Flow) OnFail(handler func(FlowEvent) error) error {
	_, err := f.hooks.Hook(EventOnFail, func(_ context.Context, e FlowEvent) error { return handler(e) })
	return err
}

func newHooks() *hookz.Hooks[FlowEvent] {
	return hookz.New[FlowEvent]()
}
