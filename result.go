package yaetl

// directiveKind enumerates the ways a node can steer traversal, per the
// Result variant design in the specification's design notes: every node
// method returns a uniform result carrying either a value or an explicit
// directive, rather than overloading the return value with sentinels.
type directiveKind int

const (
	// directiveValue means the node produced (or passed through) a Record;
	// the inner walk continues to the next node.
	directiveValue directiveKind = iota
	// directiveContinue aborts the remainder of the inner walk for the
	// current record. Confined to the carrier Flow unless TargetFlowID
	// names an ancestor.
	directiveContinue
	// directiveBreak aborts the inner walk and the outer extractor loop of
	// the carrier Flow, setting its terminal status to dirty.
	directiveBreak
	// directiveJump is not produced by any constructor in this package and
	// is not routed by the walk, which reports it as an unrecognized
	// directive. Resuming traversal at a named node is done by a continue
	// directive carrying a TargetNodeID.
	directiveJump
)

// Interrupter is the directive a node emits to alter traversal instead of
// (or alongside) returning a value. See §4.2 of the specification.
type Interrupter struct {
	Kind         directiveKind
	TargetNodeID string
	TargetFlowID string
}

// Continue builds a Interrupter that aborts the current record's walk in the
// carrier flow only.
func Continue() Interrupter {
	return Interrupter{Kind: directiveContinue}
}

// ContinueTo builds a Interrupter that aborts the current record's walk and
// names an ancestor flow the directive should be routed to.
func ContinueTo(targetFlowID, targetNodeID string) Interrupter {
	return Interrupter{Kind: directiveContinue, TargetFlowID: targetFlowID, TargetNodeID: targetNodeID}
}

// Break builds a Interrupter that terminates the whole carrier flow.
func Break() Interrupter {
	return Interrupter{Kind: directiveBreak}
}

// BreakTo builds a Interrupter that terminates the carrier flow and, if it is
// a branch, propagates to the named ancestor flow.
func BreakTo(targetFlowID, targetNodeID string) Interrupter {
	return Interrupter{Kind: directiveBreak, TargetFlowID: targetFlowID, TargetNodeID: targetNodeID}
}

// IsZero reports whether i carries no directive (the zero value), i.e. the
// node produced an ordinary value.
func (i Interrupter) IsZero() bool {
	return i.Kind == directiveValue
}

// Result is what every node method returns: either a Record to continue
// with, or a directive that changes the shape of traversal. Exactly one of
// Record/Directive is meaningful at a time, selected by Directive.IsZero.
type Result struct {
	Record    Record
	Directive Interrupter
}

// ValueResult wraps a plain record as a non-directive Result.
func ValueResult(r Record) Result {
	return Result{Record: r}
}

// DirectiveResult wraps a directive as a Result, carrying no record.
func DirectiveResult(d Interrupter) Result {
	return Result{Directive: d}
}
