package yaetl

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// branchNode wraps a sub-Flow embedded as a node (§4.4, §4.5). Each
// incoming record runs the sub-flow's own exec(record) to completion; the
// record seen by nodes downstream of the branch in the parent flow is never
// replaced by what happens inside it — a branch is a non-returning node.
type branchNode struct {
	flow       *Flow
	forceFlush bool
}

// run executes the sub-flow once with upstream as its seed record. If the
// sub-flow terminates with a directive targeted at an ancestor other than
// itself, that directive is forwarded as this node's own Result so the
// parent's walk handles it exactly like any other node's directive —
// possibly re-propagating again if it still isn't the target.
func (b *branchNode) run(ctx context.Context, upstream Record) (Result, error) {
	start := time.Now()
	b.flow.emit(ctx, EventOnFlowProgress, FlowEvent{FlowName: b.flow.name, Timestamp: start})
	capitan.Info(ctx, SignalBranchExec, FieldFlowName.Field(b.flow.name))

	_, outcome := b.flow.runAsBranch(ctx, upstream)

	if b.forceFlush {
		status := outcome.status
		if outcome.err != nil {
			status = StatusException
		}
		b.flow.finalFlush(ctx, status)
	}

	if outcome.err != nil {
		return Result{}, outcome.err
	}
	if outcome.propagate != nil {
		return DirectiveResult(*outcome.propagate), nil
	}
	// Consumed locally, or ran clean/dirty without an ancestor-targeted
	// directive: the branch is non-returning, the upstream record passes
	// through unchanged.
	return ValueResult(upstream), nil
}

// runAsBranch is like Exec but skips the reentrancy guard and the final
// flush (the carrier flow decides when the branch's loaders flush), since a
// branch's "run" is driven by the parent's own Exec/SendTo, which already
// holds the running guard for the whole tree it is not meant to share.
func (f *Flow) runAsBranch(ctx context.Context, seed Record) (Record, execOutcome) {
	if len(f.roots) == 0 {
		return f.execLinear(ctx, seed)
	}
	return nil, f.execExtractorDriven(ctx, seed)
}
