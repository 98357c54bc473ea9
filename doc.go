// Package yaetl provides a lightweight, composable engine for building
// Extract-Transform-Load pipelines in Go.
//
// # Overview
//
// yaetl turns heterogeneous streaming work — paginated database reads, file
// parsing, record reshaping, conditional routing, bulk writes with deferred
// flush, relational joins against auxiliary sources, and sub-pipelines
// (branches) — into a uniform pipeline of Nodes with explicit per-record
// control flow.
//
// # Core Concepts
//
// A Flow owns an ordered list of Nodes. Each Node is one of:
//
//   - Extractor: produces records in batches (Extract) and exposes the
//     current batch as a lazy sequence (Traversable).
//   - Transformer: maps a Record to another Record.
//   - Loader: consumes a Record and eventually commits it via Flush.
//   - Qualifier: decides whether a Record proceeds through the rest of the
//     carrier Flow.
//   - Branch: a Flow embedded as a Node, executed once per incoming Record.
//
// Records are associative data — Record is a map[string]any — matching the
// shape produced by CSV rows, database cursors, and line-oriented files.
//
// # Building a Flow
//
//	f := yaetl.NewFlow("orders")
//	f.From(extract.NewSlice("rows", rows, 100))
//	f.Transform(yaetl.Transform("double", func(_ context.Context, r yaetl.Record) yaetl.Record {
//	    r["n"] = r["n"].(int) * 2
//	    return r
//	}))
//	f.To(load.NewSlice("sink"))
//
//	_, status, err := f.Exec(context.Background(), nil)
//
// # Control Flow
//
// Any node may return a Result carrying a directive instead of, or alongside,
// a value: Continue aborts the remainder of the inner walk for the current
// record; Break aborts the whole outer loop and marks the Flow dirty; a
// Continue that names a target node (ContinueTo) resumes traversal at that
// node instead of dropping the record. Qualifiers use this to implement
// accept/reject without the caller writing if-statements around every step.
//
// # Joins
//
// Join registers a Joinable extractor as a non-root extractor subordinate to
// an upstream extractor. Each record looks up a key in the joinable's
// current batch index; a hit merges the two records, a miss either drops the
// record (inner join) or merges with a supplied default (left join).
//
// # Observability
//
// Every Flow carries a metricz.Registry (flow-level totals), a tracez.Tracer
// (per-node spans), a hookz.Hooks set (OnStart/OnFlowProgress/OnSuccess/
// OnFail lifecycle callbacks) and emits capitan signals at well-defined
// points. None of this is required to use the engine — it is populated with
// sane defaults. Flow.Stats() reports the per-node counters (seen, dropped,
// errors, join hits/misses) and the last run's status; the metricz registry
// and tracer are not exposed through it.
package yaetl
