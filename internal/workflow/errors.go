package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph = errors.New("invalid workflow graph")
	ErrCycle        = errors.New("cycle detected")
	ErrOwnership    = errors.New("node wrote outside its owned fields")
	ErrMissingField = errors.New("node omitted an owned field")
	ErrBadRoute     = errors.New("router returned an undeclared destination")
)

// GraphError reports a graph that failed validation at build time.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []NodeID) error {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	return &GraphError{Kind: ErrCycle, Msg: strings.Join(parts, " -> ")}
}

// NodeError wraps an error returned by, or detected after, a node's run.
type NodeError struct {
	Node NodeID
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
