package yaetl

import "context"

// RecordIterator is a forward-only iterator over the records of an
// Extractor's most recent batch. Grounded on the decode/iterate split used
// by format-agnostic record decoders: Next advances, Record reads, Err
// reports a terminal failure.
type RecordIterator interface {
	// Next advances to the next record and reports whether one is
	// available. Returns false on batch exhaustion or on error — callers
	// must check Err() to tell the two apart.
	Next(ctx context.Context) bool
	// Record returns the current record. Only valid after Next returned
	// true.
	Record() Record
	// Err returns the first non-EOF error encountered, or nil.
	Err() error
}

// Extractor produces records in batches. Extract pulls the next batch and
// reports whether any records were obtained; Traversable exposes the batch
// just pulled as a lazy sequence. See §3/§4.1 of the specification.
type Extractor interface {
	// ID returns the node's stable identifier.
	ID() string
	// Extract pulls the next batch. param is threaded through from the
	// Flow.Exec call for the root extractor, and is nil for continuation
	// extractors in a from-chain.
	Extract(ctx context.Context, param any) (bool, error)
	// Traversable returns an iterator over the batch most recently pulled
	// by Extract.
	Traversable(ctx context.Context) RecordIterator
}

// Joinable is an Extractor additionally capable of indexing its current
// batch by join key, consulted by the join operator (§4.3). The index must
// be rebuilt whenever Extract pulls a new batch and cleared if Extract
// yields no records.
type Joinable interface {
	Extractor
	// Index returns the join-key -> record map for the current batch. Keys
	// must be comparable; composite extraction is the extractor's own
	// concern, but the lookup key exposed here must be a single scalar
	// value, unique within the batch.
	Index() map[any]Record
}

// Transformer maps one record to another. It is a returning node: its
// result, when not a directive, replaces the record seen by downstream
// nodes.
type Transformer interface {
	ID() string
	Exec(ctx context.Context, r Record) (Result, error)
}

// Loader consumes a record and eventually commits it via Flush. It is a
// non-returning node: the record passed to downstream nodes is unchanged by
// a Loader's Exec, unless Exec returns a directive.
type Loader interface {
	ID() string
	Exec(ctx context.Context, r Record) (Result, error)
	// Flush is called by the engine exactly once per Flow.Exec run, with a
	// set FlowStatus, after the outer extract loop ends (§4.4). Loaders
	// that buffer internally must drain (status clean/dirty) or discard
	// (status exception) their buffer here.
	Flush(ctx context.Context, status FlowStatus) error
}

// Qualifier decides whether a record proceeds through the rest of the
// carrier flow. Returning accept (ValueResult) continues traversal
// unchanged; returning a directive (typically Continue()) drops the record
// in the carrier flow only, per the qualifier convention in §4.2.
type Qualifier interface {
	ID() string
	Qualify(ctx context.Context, r Record) (Result, error)
}

// nodeKind tags which capability a composed node exposes, letting the inner
// walk dispatch by a type switch instead of reflection — the "tagged
// variant" approach called for by the specification's design notes.
type nodeKind int

const (
	kindExtractor nodeKind = iota
	kindTransformer
	kindLoader
	kindQualifier
	kindBranch
	kindJoin
)

// node is the engine's internal, uniform view of a composed Node: a stable
// id, its kind, whether it is a returning node (replaces the record for
// downstream nodes) or traversable (extractor-like), and a back-reference to
// its carrier Flow, set once when the node is added.
type node struct {
	id          string
	kind        nodeKind
	isReturning bool
	carrier     *Flow

	extractor   Extractor
	transformer Transformer
	loader      Loader
	qualifier   Qualifier
	branch      *branchNode
	join        *joinNode
}
