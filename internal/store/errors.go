package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a node referenced by id does not exist.
var ErrNotFound = errors.New("node not found")

// ValidationError rejects a mutation before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidEdgeTypeError is returned when an edge type is not allowed
// between the source and target node types.
type InvalidEdgeTypeError struct {
	EdgeType EdgeType
	Source   NodeType
	Target   NodeType
}

func (e *InvalidEdgeTypeError) Error() string {
	return fmt.Sprintf("edge type %q is not valid for %s -> %s", e.EdgeType, e.Source, e.Target)
}

// CycleError is returned when a depends_on edge would close a cycle.
type CycleError struct {
	SourceID string
	TargetID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("edge would create a dependency cycle: %s -> %s", e.SourceID, e.TargetID)
}
