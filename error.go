package yaetl

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CompositionError reports a misuse of the Flow builder API, raised
// synchronously at composition time: an unknown SendTo target, a node
// instance added twice, a Join against an extractor that was never
// registered via From. See §7 of the specification.
type CompositionError struct {
	Op      string
	NodeID  string
	Message string
}

func (e *CompositionError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("yaetl: %s: %s (node %q)", e.Op, e.Message, e.NodeID)
	}
	return fmt.Sprintf("yaetl: %s: %s", e.Op, e.Message)
}

func compositionErrorf(op, nodeID, format string, args ...any) *CompositionError {
	return &CompositionError{Op: op, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}

// Error provides rich context about a runtime node failure: which node
// failed, what record it was processing, and the path of carrier flows the
// failure unwound through before reaching the caller of Exec. Grounded on
// the rich error type conventional in composable pipeline libraries.
type Error struct {
	Timestamp time.Time
	InputData Record
	Err       error
	Path      []string
	Duration  time.Duration
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := strings.Join(e.Path, " -> ")
	if path == "" {
		path = "unknown"
	}
	return fmt.Sprintf("%s failed after %v: %v", path, e.Duration, e.Err)
}

// Unwrap supports errors.Is / errors.As against the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapNodeError builds or extends an Error as it unwinds out of a node
// invocation, prepending the failing node's id to the path the same way the
// carrier flow prepends its own identity when a Sequence-style connector
// re-raises a child error.
func wrapNodeError(nodeID string, record Record, err error, start time.Time) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		existing.Path = append([]string{nodeID}, existing.Path...)
		return existing
	}
	return &Error{
		Timestamp: time.Now(),
		InputData: record,
		Err:       err,
		Path:      []string{nodeID},
		Duration:  time.Since(start),
	}
}
