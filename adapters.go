package yaetl

import "context"

// TransformerFunc adapts a plain function into a Transformer, the same way
// the reference pipeline library's Apply/Transform adapters turn a function
// into a Chainable. Use it for inline or small transformers instead of
// hand-writing a type.
type TransformerFunc struct {
	id string
	fn func(context.Context, Record) (Result, error)
}

// NewTransformerFunc builds a Transformer from fn. fn should return
// ValueResult(rec) on success, DirectiveResult(Continue()/Break()) to steer
// traversal, or an error for an unrecoverable failure.
func NewTransformerFunc(id string, fn func(context.Context, Record) (Result, error)) *TransformerFunc {
	return &TransformerFunc{id: id, fn: fn}
}

// Transform builds a TransformerFunc from a pure, non-failing mapping —
// mirroring the "Transform" adapter for operations that cannot fail.
func Transform(id string, fn func(context.Context, Record) Record) *TransformerFunc {
	return &TransformerFunc{id: id, fn: func(ctx context.Context, r Record) (Result, error) {
		return ValueResult(fn(ctx, r)), nil
	}}
}

// Apply builds a TransformerFunc from a mapping that may fail — mirroring
// the "Apply" adapter for transformations that can return an error.
func Apply(id string, fn func(context.Context, Record) (Record, error)) *TransformerFunc {
	return &TransformerFunc{id: id, fn: func(ctx context.Context, r Record) (Result, error) {
		out, err := fn(ctx, r)
		if err != nil {
			return Result{}, err
		}
		return ValueResult(out), nil
	}}
}

func (t *TransformerFunc) ID() string { return t.id }

func (t *TransformerFunc) Exec(ctx context.Context, r Record) (Result, error) {
	return t.fn(ctx, r)
}

// LoaderFunc adapts a plain exec/flush pair into a Loader.
type LoaderFunc struct {
	id      string
	execFn  func(context.Context, Record) (Result, error)
	flushFn func(context.Context, FlowStatus) error
}

// NewLoaderFunc builds a Loader from an exec function and a flush function.
// flushFn may be nil for loaders with nothing to flush (e.g. pure side
// effects), in which case Flush is a no-op.
func NewLoaderFunc(id string, execFn func(context.Context, Record) (Result, error), flushFn func(context.Context, FlowStatus) error) *LoaderFunc {
	return &LoaderFunc{id: id, execFn: execFn, flushFn: flushFn}
}

func (l *LoaderFunc) ID() string { return l.id }

func (l *LoaderFunc) Exec(ctx context.Context, r Record) (Result, error) {
	return l.execFn(ctx, r)
}

func (l *LoaderFunc) Flush(ctx context.Context, status FlowStatus) error {
	if l.flushFn == nil {
		return nil
	}
	return l.flushFn(ctx, status)
}

// QualifierFunc adapts a boolean predicate into a Qualifier, mirroring the
// reference library's Filter adapter: true accepts the record unchanged,
// false rejects it (continue, confined to the carrier flow).
type QualifierFunc struct {
	id        string
	predicate func(context.Context, Record) bool
}

// NewQualifierFunc builds a Qualifier from a boolean predicate.
func NewQualifierFunc(id string, predicate func(context.Context, Record) bool) *QualifierFunc {
	return &QualifierFunc{id: id, predicate: predicate}
}

func (q *QualifierFunc) ID() string { return q.id }

func (q *QualifierFunc) Qualify(ctx context.Context, r Record) (Result, error) {
	if q.predicate(ctx, r) {
		return ValueResult(r), nil
	}
	return DirectiveResult(Continue()), nil
}
