package yaetl

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Flow owns a strictly ordered list of Nodes and drives records through
// them. See §4.1 of the specification for the outer extract loop / inner
// walk algorithm.
type Flow struct {
	name string

	nodes []*node
	index map[string]int // node id -> position in nodes

	roots          []string          // chain extractors with no upstream, in registration order
	continuationOf map[string]string // upstream extractor id -> its single continuation id
	sharedStart    int               // node index where the downstream pipeline shared by all chain extractors begins

	parent       *Flow  // set when this Flow is embedded as a branch
	parentNodeID string // id of the branch node in parent that embeds this flow

	running    atomic.Bool
	lastStatus atomic.Int32

	stats   *stats
	hooks   *hookz.Hooks[FlowEvent]
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	clock   clockz.Clock
}

// NewFlow creates an empty Flow identified by name. The name doubles as the
// Flow's id for directive routing (TargetFlowID) when the Flow is used as a
// branch.
func NewFlow(name string) *Flow {
	registry := metricz.New()
	registry.Counter(MetricRecordsSeen)
	registry.Counter(MetricRecordsDropped)
	registry.Counter(MetricNodeErrors)
	registry.Counter(MetricJoinHits)
	registry.Counter(MetricJoinMisses)
	registry.Gauge(MetricInFlight)

	return &Flow{
		name:           name,
		index:          make(map[string]int),
		continuationOf: make(map[string]string),
		stats:          newStats(),
		hooks:          newHooks(),
		metrics:        registry,
		tracer:         tracez.New(),
		clock:          clockz.RealClock,
	}
}

// Name returns the Flow's identifier.
func (f *Flow) Name() string { return f.name }

// WithClock overrides the clock returned by Clock. The engine itself does
// no time-based bookkeeping with it, and concrete nodes such as
// load.Buffered receive their own clock as a constructor argument rather
// than reading it from their carrier Flow.
func (f *Flow) WithClock(c clockz.Clock) *Flow {
	f.clock = c
	return f
}

// Clock returns the Flow's clock.
func (f *Flow) Clock() clockz.Clock { return f.clock }

func (f *Flow) mustAddNode(n *node) {
	if _, dup := f.index[n.id]; dup {
		panic(compositionErrorf("add-node", n.id, "a node with this id was already added to flow %q", f.name))
	}
	n.carrier = f
	f.index[n.id] = len(f.nodes)
	f.nodes = append(f.nodes, n)
	f.stats.register(n.id, kindName(n.kind))
}

func kindName(k nodeKind) string {
	switch k {
	case kindExtractor:
		return "extractor"
	case kindTransformer:
		return "transformer"
	case kindLoader:
		return "loader"
	case kindQualifier:
		return "qualifier"
	case kindBranch:
		return "branch"
	case kindJoin:
		return "join"
	default:
		return "unknown"
	}
}

// From registers an extractor in the Flow's from-chain (§4.1, §6). With no
// upstream argument, ex is registered as a root, tried in registration
// order once any prior root drains. With an upstream argument, ex is used
// as a continuation once upstream drains — upstream must already have been
// registered via From.
func (f *Flow) From(ex Extractor, upstream ...Extractor) *Flow {
	n := &node{id: ex.ID(), kind: kindExtractor, extractor: ex}
	f.mustAddNode(n)
	f.sharedStart = len(f.nodes)

	if len(upstream) == 0 {
		f.roots = append(f.roots, ex.ID())
		return f
	}
	up := upstream[0]
	if _, ok := f.index[up.ID()]; !ok {
		panic(compositionErrorf("from", ex.ID(), "upstream extractor %q was not registered on this flow", up.ID()))
	}
	if _, dup := f.continuationOf[up.ID()]; dup {
		panic(compositionErrorf("from", ex.ID(), "upstream extractor %q already has a continuation", up.ID()))
	}
	f.continuationOf[up.ID()] = ex.ID()
	return f
}

// Transform appends a transformer.
func (f *Flow) Transform(t Transformer) *Flow {
	f.mustAddNode(&node{id: t.ID(), kind: kindTransformer, isReturning: true, transformer: t})
	return f
}

// To appends a loader.
func (f *Flow) To(l Loader) *Flow {
	f.mustAddNode(&node{id: l.ID(), kind: kindLoader, isReturning: false, loader: l})
	return f
}

// Qualify appends a qualifier.
func (f *Flow) Qualify(q Qualifier) *Flow {
	f.mustAddNode(&node{id: q.ID(), kind: kindQualifier, isReturning: true, qualifier: q})
	return f
}

// Join appends a join node: joinable is a subordinate extractor keyed
// against records produced by upstream, which must already be registered on
// this flow via From (§4.3).
func (f *Flow) Join(joinable Joinable, upstream Extractor, onClose OnClose) *Flow {
	if _, ok := f.index[upstream.ID()]; !ok {
		panic(compositionErrorf("join", joinable.ID(), "upstream extractor %q was not registered on this flow", upstream.ID()))
	}
	jn := &joinNode{id: joinable.ID(), joinable: joinable, upstream: upstream.ID(), onClose: onClose, carrierName: f.name}
	f.mustAddNode(&node{id: joinable.ID(), kind: kindJoin, isReturning: true, join: jn})
	return f
}

// Branch embeds sub as a node, executed once per incoming record. If
// forceFlush is true, sub flushes its own loaders immediately after each
// execution instead of deferring to this flow's final flush (§4.4, §4.5).
func (f *Flow) Branch(sub *Flow, forceFlush ...bool) *Flow {
	force := len(forceFlush) > 0 && forceFlush[0]
	bn := &branchNode{flow: sub, forceFlush: force}
	sub.parent = f
	sub.parentNodeID = sub.name
	f.mustAddNode(&node{id: sub.name, kind: kindBranch, isReturning: false, branch: bn})
	return f
}

// SendTo injects record directly at the named node, skipping earlier nodes.
// Provided for testing and cross-branch coordination (§4.5).
func (f *Flow) SendTo(ctx context.Context, nodeID string, record Record) (FlowStatus, error) {
	idx, ok := f.index[nodeID]
	if !ok {
		return 0, compositionErrorf("send-to", nodeID, "no such node on flow %q", f.name)
	}
	if !f.running.CompareAndSwap(false, true) {
		return 0, compositionErrorf("send-to", nodeID, "flow %q is already running", f.name)
	}
	defer f.running.Store(false)

	wr := f.walk(ctx, idx, record)
	outcome := execOutcome{status: StatusClean, err: wr.err}
	switch {
	case wr.err != nil:
	case wr.propagate != nil:
		outcome.err = compositionErrorf("interrupt-routing", wr.propagate.TargetNodeID,
			"no ancestor flow of %q owns target flow %q", f.name, wr.propagate.TargetFlowID)
	case wr.brk:
		outcome.status = StatusDirty
	}
	status := f.resolveStatus(outcome)
	f.finalFlush(ctx, status)
	f.lastStatus.Store(int32(status))
	return status, outcome.err
}

// Exec runs the Flow. With one or more extractors registered, it runs in
// extractor-driven mode and param is passed to the root extractor(s)' pull
// calls; the returned Record is always the zero value and status is
// meaningful. With no extractors, it runs as a single-pass linear chain
// seeded by param (nil is treated as an empty Record) and the returned
// Record is the last returning node's value; status is still populated.
func (f *Flow) Exec(ctx context.Context, param any) (Record, FlowStatus, error) {
	if !f.running.CompareAndSwap(false, true) {
		return nil, 0, compositionErrorf("exec", "", "flow %q is already running", f.name)
	}
	defer f.running.Store(false)

	ctx, span := f.tracer.StartSpan(ctx, SpanFlowExec)
	defer span.Finish()

	start := time.Now()
	f.emit(ctx, EventOnStart, FlowEvent{FlowName: f.name, Timestamp: start})
	capitan.Info(ctx, SignalFlowStarted, FieldFlowName.Field(f.name))

	var result Record
	var outcome execOutcome
	if len(f.roots) == 0 {
		result, outcome = f.execLinear(ctx, param)
	} else {
		outcome = f.execExtractorDriven(ctx, param)
	}

	status := f.resolveStatus(outcome)
	if outcome.propagate != nil {
		// A targeted directive escaped every ancestor: the target id names
		// no node on the path, which is a routing error at the moment it
		// would have been honored (§7).
		outcome.err = compositionErrorf("interrupt-routing", outcome.propagate.TargetNodeID,
			"no ancestor flow of %q owns target flow %q", f.name, outcome.propagate.TargetFlowID)
		status = StatusException
	}

	f.finalFlush(ctx, status)
	f.lastStatus.Store(int32(status))

	span.SetTag(TagSuccess, fmt.Sprintf("%t", outcome.err == nil))
	if outcome.err != nil {
		f.emit(ctx, EventOnFail, FlowEvent{FlowName: f.name, Err: outcome.err, Status: status, Timestamp: time.Now()})
		capitan.Error(ctx, SignalFlowCompleted, FieldFlowName.Field(f.name), FieldStatus.Field(status.String()), FieldError.Field(outcome.err.Error()))
	} else {
		f.emit(ctx, EventOnSuccess, FlowEvent{FlowName: f.name, Status: status, Duration: time.Since(start), Timestamp: time.Now()})
		capitan.Info(ctx, SignalFlowCompleted, FieldFlowName.Field(f.name), FieldStatus.Field(status.String()))
	}

	return result, status, outcome.err
}

func (f *Flow) resolveStatus(o execOutcome) FlowStatus {
	if o.err != nil {
		return StatusException
	}
	return o.status
}

func (f *Flow) emit(ctx context.Context, key hookz.Key, evt FlowEvent) {
	if f.hooks.ListenerCount(key) == 0 {
		return
	}
	_ = f.hooks.Emit(ctx, key, evt) //nolint:errcheck
}

// Stats returns a snapshot of the per-node counters and a human-readable
// report.
func (f *Flow) Stats() FlowStats {
	return f.stats.snapshot(f.name, FlowStatus(f.lastStatus.Load()))
}

// Close releases observability resources held by the Flow and, in
// declaration order, any branch sub-flows. Idempotent.
func (f *Flow) Close() error {
	for _, n := range f.nodes {
		if n.kind == kindBranch {
			_ = n.branch.flow.Close()
		}
	}
	f.tracer.Close()
	f.hooks.Close()
	return nil
}
