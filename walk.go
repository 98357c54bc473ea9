package yaetl

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/capitan"
)

// execOutcome is the result of running one Flow to completion, either in
// linear or extractor-driven mode.
type execOutcome struct {
	status    FlowStatus
	propagate *Interrupter // a targeted directive that named a different flow
	err       error
}

// walkResult is the result of walking one record through the nodes
// following a given index.
type walkResult struct {
	record    Record
	brk       bool // a non-targeted (or locally-targeted) break reached the end of its handling
	propagate *Interrupter
	err       error
}

// execLinear runs the zero-extractor shape: a single pass over every node,
// seeded by param (used directly if it is already a Record, otherwise an
// empty Record).
func (f *Flow) execLinear(ctx context.Context, param any) (Record, execOutcome) {
	rec, _ := param.(Record)
	if rec == nil {
		rec = Record{}
	}

	wr := f.walk(ctx, 0, rec)
	switch {
	case wr.err != nil:
		return nil, execOutcome{err: wr.err}
	case wr.propagate != nil:
		return nil, execOutcome{propagate: wr.propagate}
	case wr.brk:
		return wr.record, execOutcome{status: StatusDirty}
	default:
		return wr.record, execOutcome{status: StatusClean}
	}
}

// execExtractorDriven runs the outer extract loop of §4.1: each root
// extractor is drained, falling through to its registered continuation (if
// any) once exhausted, before moving to the next root.
func (f *Flow) execExtractorDriven(ctx context.Context, param any) execOutcome {
	for _, root := range f.roots {
		id := root
		for id != "" {
			n := f.nodes[f.index[id]]
			ex := n.extractor

			p := any(nil)
			if id == root {
				p = param
			}

			for {
				more, err := ex.Extract(ctx, p)
				if err != nil {
					return execOutcome{err: wrapNodeError(id, nil, err, time.Now())}
				}
				if !more {
					break
				}

				it := ex.Traversable(ctx)
				for it.Next(ctx) {
					rec := it.Record()
					f.stats.seen(id)
					f.metrics.Counter(MetricRecordsSeen).Inc()

					wr := f.walk(ctx, f.sharedStart, rec)
					if wr.err != nil {
						return execOutcome{err: wr.err}
					}
					if wr.propagate != nil {
						return execOutcome{propagate: wr.propagate}
					}
					if wr.brk {
						return execOutcome{status: StatusDirty}
					}

					f.emit(ctx, EventOnFlowProgress, FlowEvent{FlowName: f.name, NodeID: id, RecordsSeen: 1, Timestamp: time.Now()})
				}
				if err := it.Err(); err != nil {
					return execOutcome{err: wrapNodeError(id, nil, err, time.Now())}
				}
			}

			id = f.continuationOf[id]
		}
	}
	return execOutcome{status: StatusClean}
}

// walk drives a single record through the nodes starting at index start,
// applying the directive-routing rules of §4.2.
func (f *Flow) walk(ctx context.Context, start int, rec Record) walkResult {
	for i := start; i < len(f.nodes); i++ {
		n := f.nodes[i]
		if n.kind == kindExtractor {
			// A chain extractor reached mid-walk (possible only if a From
			// call was interleaved after the shared downstream pipeline
			// began); it is not a per-record node.
			continue
		}

		res, err := f.execNode(ctx, n, rec)
		if err != nil {
			return walkResult{record: rec, err: wrapNodeError(n.id, rec, err, time.Now())}
		}
		f.stats.seen(n.id)

		if !res.Directive.IsZero() {
			d := res.Directive
			if d.TargetFlowID != "" && d.TargetFlowID != f.name {
				return walkResult{record: rec, propagate: &d}
			}

			switch d.Kind {
			case directiveContinue:
				if d.TargetNodeID != "" {
					idx, ok := f.index[d.TargetNodeID]
					if !ok {
						return walkResult{record: rec, err: compositionErrorf("interrupt-routing", d.TargetNodeID, "no such node on flow %q", f.name)}
					}
					i = idx - 1 // resume traversal from the named node
					continue
				}
				f.stats.dropped(n.id)
				f.metrics.Counter(MetricRecordsDropped).Inc()
				capitan.Info(ctx, SignalNodeContinue, FieldFlowName.Field(f.name), FieldNodeID.Field(n.id))
				return walkResult{record: rec}
			case directiveBreak:
				capitan.Warn(ctx, SignalNodeBreak, FieldFlowName.Field(f.name), FieldNodeID.Field(n.id))
				return walkResult{record: rec, brk: true}
			default:
				return walkResult{record: rec, err: fmt.Errorf("yaetl: node %q returned an unrecognized directive", n.id)}
			}
		}

		if n.isReturning {
			rec = res.Record
		}
	}
	return walkResult{record: rec}
}

// execNode dispatches to the node's capability, timing and tagging the call
// and converting a panic into a runtime node error instead of unwinding the
// whole process — the engine's only recovery behavior (§7: nodes own their
// own recovery, the engine owns none, but a panic must not take down the
// host program).
func (f *Flow) execNode(ctx context.Context, n *node, rec Record) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in node %q: %v", n.id, p)
		}
	}()

	ctx, span := f.tracer.StartSpan(ctx, SpanNodeExec)
	defer span.Finish()
	span.SetTag(TagNodeID, n.id)
	span.SetTag(TagNodeKind, kindName(n.kind))

	switch n.kind {
	case kindTransformer:
		res, err = n.transformer.Exec(ctx, rec)
	case kindLoader:
		res, err = n.loader.Exec(ctx, rec)
	case kindQualifier:
		res, err = n.qualifier.Qualify(ctx, rec)
	case kindJoin:
		jctx, jspan := f.tracer.StartSpan(ctx, SpanJoinFetch)
		res, err = n.join.resolve(jctx, rec)
		jspan.Finish()
		if err == nil {
			if res.Directive.IsZero() {
				f.stats.joinHit(n.id)
				f.metrics.Counter(MetricJoinHits).Inc()
			} else {
				f.stats.joinMiss(n.id)
				f.metrics.Counter(MetricJoinMisses).Inc()
			}
		}
	case kindBranch:
		res, err = n.branch.run(ctx, rec)
	default:
		res, err = ValueResult(rec), nil
	}

	span.SetTag(TagSuccess, fmt.Sprintf("%t", err == nil))
	if err != nil {
		f.stats.errored(n.id)
		f.metrics.Counter(MetricNodeErrors).Inc()
	}
	return res, err
}

// finalFlush calls Flush on every loader in declaration order, then
// recurses into any branch sub-flow whose loaders were not already flushed
// via forceFlush (§4.4). Flush errors are best-effort and discarded: Exec's
// own return value already reflects whatever made the flow clean, dirty, or
// an exception, and a loader's own Flush is expected to log or surface
// failures through its own observability path.
func (f *Flow) finalFlush(ctx context.Context, status FlowStatus) {
	for _, n := range f.nodes {
		switch n.kind {
		case kindLoader:
			f.emit(ctx, EventOnFlowProgress, FlowEvent{FlowName: f.name, NodeID: n.id, Status: status, Timestamp: time.Now()})
			capitan.Info(ctx, SignalLoaderFlush, FieldFlowName.Field(f.name), FieldNodeID.Field(n.id), FieldStatus.Field(status.String()))
			_ = n.loader.Flush(ctx, status) //nolint:errcheck
		case kindBranch:
			if !n.branch.forceFlush {
				n.branch.flow.finalFlush(ctx, status)
			}
		}
	}
}
