package yaetl

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
)

// OnClose carries the configuration for a Join node: which field to read
// the key from in the upstream record, which field the joined record is
// keyed by, how to merge a hit, and an optional default that turns the join
// into a left join. See §4.3 of the specification.
type OnClose struct {
	// FromKey is the field name read from the upstream record to obtain the
	// join key value.
	FromKey string
	// JoinKey is informational: the field name the joinable extractor's
	// records are keyed by. The engine does not read it directly — it only
	// consults the Joinable's Index() — but node implementations use it to
	// build that index consistently.
	JoinKey string
	// Merge combines the upstream record with the joined record on a hit
	// (or with Default on a left-join miss). Defaults to Merge if nil.
	Merge func(upstream, joined Record) Record
	// Default, if non-nil, turns a miss into a left join: Merge is called
	// with Default standing in for the joined record. If nil, a miss drops
	// the record (inner join).
	Default Record
}

// joinNode is the engine's internal representation of a Join: a Joinable
// extractor subordinate to an upstream extractor, plus the merge
// configuration.
type joinNode struct {
	id          string
	joinable    Joinable
	upstream    string // id of the upstream extractor this join is keyed against
	onClose     OnClose
	carrierName string // name of the owning Flow, for observability only
}

// resolve performs the per-record join lookup described in §4.3: read the
// key from the upstream record, ensure the joinable's batch index is
// populated, then merge on a hit or apply the inner/left-join miss rule.
func (j *joinNode) resolve(ctx context.Context, upstreamRecord Record) (Result, error) {
	key, ok := upstreamRecord[j.onClose.FromKey]
	if !ok {
		return j.miss(ctx, upstreamRecord)
	}

	index := j.joinable.Index()
	joined, hit := index[key]
	if !hit {
		// The batch map is either empty or doesn't yet cover this key;
		// give the joinable extractor a chance to fetch and index the next
		// batch before declaring a miss.
		capitan.Info(ctx, SignalJoinBatchFetch, FieldFlowName.Field(j.carrierName), FieldNodeID.Field(j.id))
		more, err := j.joinable.Extract(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if more {
			joined, hit = j.joinable.Index()[key]
		}
	}
	if !hit {
		return j.miss(ctx, upstreamRecord)
	}

	capitan.Info(ctx, SignalJoinHit, FieldFlowName.Field(j.carrierName), FieldNodeID.Field(j.id), FieldJoinKey.Field(fmt.Sprintf("%v", key)))

	merge := j.onClose.Merge
	if merge == nil {
		merge = Merge
	}
	return ValueResult(merge(upstreamRecord, joined)), nil
}

func (j *joinNode) miss(ctx context.Context, upstreamRecord Record) (Result, error) {
	capitan.Warn(ctx, SignalJoinMiss, FieldFlowName.Field(j.carrierName), FieldNodeID.Field(j.id))
	if j.onClose.Default == nil {
		// Inner join: drop the record, confined to the carrier flow.
		return DirectiveResult(Continue()), nil
	}
	merge := j.onClose.Merge
	if merge == nil {
		merge = Merge
	}
	return ValueResult(merge(upstreamRecord, j.onClose.Default)), nil
}
