package yaetl

import (
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Signal constants for Flow lifecycle events. Signals follow the pattern
// <component>.<event>, mirroring the reference pipeline library's signal
// naming. Callers attach their own capitan subscriber to observe these; the
// engine never logs directly.
const (
	SignalFlowStarted    capitan.Signal = "flow.started"
	SignalFlowCompleted  capitan.Signal = "flow.completed"
	SignalNodeContinue   capitan.Signal = "node.continue"
	SignalNodeBreak      capitan.Signal = "node.break"
	SignalJoinHit        capitan.Signal = "join.hit"
	SignalJoinMiss       capitan.Signal = "join.miss"
	SignalJoinBatchFetch capitan.Signal = "join.batch-fetch"
	SignalLoaderFlush    capitan.Signal = "loader.flush"
	SignalBranchExec     capitan.Signal = "branch.exec"
)

// Common field keys using capitan's primitive key types.
var (
	FieldFlowName    = capitan.NewStringKey("flow_name")
	FieldNodeID      = capitan.NewStringKey("node_id")
	FieldStatus      = capitan.NewStringKey("status")
	FieldError       = capitan.NewStringKey("error")
	FieldRecordCount = capitan.NewIntKey("record_count")
	FieldDuration    = capitan.NewFloat64Key("duration")
	FieldJoinKey     = capitan.NewStringKey("join_key")
	FieldTargetNode  = capitan.NewStringKey("target_node_id")
)

// Metric keys tracked per Flow.
const (
	MetricRecordsSeen    = metricz.Key("flow.records.seen")
	MetricRecordsDropped = metricz.Key("flow.records.dropped")
	MetricNodeErrors     = metricz.Key("flow.node.errors")
	MetricJoinHits       = metricz.Key("flow.join.hits")
	MetricJoinMisses     = metricz.Key("flow.join.misses")
	MetricInFlight       = metricz.Key("flow.records.inflight")
)

// Span names used while tracing the inner walk.
const (
	SpanFlowExec  = tracez.Key("flow.exec")
	SpanNodeExec  = tracez.Key("flow.node.exec")
	SpanJoinFetch = tracez.Key("flow.join.fetch")
)

// Span tags.
const (
	TagNodeID   = tracez.Tag("node_id")
	TagNodeKind = tracez.Tag("node_kind")
	TagSuccess  = tracez.Tag("success")
)

// Hook event keys backing Flow's lifecycle callbacks (§4.1, §9).
const (
	EventOnStart        = hookz.Key("flow.on_start")
	EventOnFlowProgress = hookz.Key("flow.on_progress")
	EventOnSuccess      = hookz.Key("flow.on_success")
	EventOnFail         = hookz.Key("flow.on_fail")
)
