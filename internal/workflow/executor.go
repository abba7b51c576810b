package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yubzen/tripweaver/internal/plan"
)

// StepStatus is the lifecycle state reported for a node.
type StepStatus string

const (
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// StepEvent is emitted to observers around each node invocation.
type StepEvent struct {
	RunID    string
	Node     NodeID
	Status   StepStatus
	Duration time.Duration
	Err      error
}

// Observer receives step events. It is called synchronously on the run's
// goroutine and must not block for long.
type Observer func(StepEvent)

// Trace is the ordered list of nodes a run visited.
type Trace struct {
	RunID   string
	Visited []NodeID
}

// Executor drives a Graph to completion.
type Executor struct {
	graph     *Graph
	logger    *slog.Logger
	observers []Observer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithObserver adds an observer for step events.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// NewExecutor creates an executor for a built graph.
func NewExecutor(g *Graph, opts ...ExecutorOption) (*Executor, error) {
	if g == nil {
		return nil, errors.New("graph cannot be nil")
	}
	e := &Executor{graph: g, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run walks the graph from its entry and returns the final record.
func (e *Executor) Run(ctx context.Context, initial plan.Record) (plan.Record, error) {
	rec, _, err := e.RunTraced(ctx, initial)
	return rec, err
}

// RunTraced is Run that also reports the visited nodes. On error the trace
// holds every node reached, including the one that failed.
func (e *Executor) RunTraced(ctx context.Context, initial plan.Record) (plan.Record, Trace, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	trace := Trace{RunID: uuid.NewString()}
	logger := e.logger.With("run_id", trace.RunID)

	rec := initial
	visited := make(map[NodeID]bool)
	current := e.graph.Entry()

	for {
		if visited[current] {
			path := append(append([]NodeID(nil), trace.Visited...), current)
			return rec, trace, cycleError(path)
		}
		visited[current] = true
		trace.Visited = append(trace.Visited, current)

		node, ok := e.graph.Node(current)
		if !ok {
			return rec, trace, invalidf("node %s is not declared", current)
		}

		next, err := e.step(ctx, logger, trace.RunID, node, rec)
		if err != nil {
			return rec, trace, err
		}
		rec = next

		route, err := e.graph.Successor(current, rec)
		if err != nil {
			return rec, trace, err
		}
		following, cont := route.Next()
		if !cont {
			logger.Debug("Workflow finished", "visited", joinIDs(trace.Visited), "version", rec.Version())
			return rec, trace, nil
		}
		logger.Debug("Routing", "from", current, "route", route.String())
		current = following
	}
}

func (e *Executor) step(ctx context.Context, logger *slog.Logger, runID string, node Node, rec plan.Record) (plan.Record, error) {
	e.emit(StepEvent{RunID: runID, Node: node.ID, Status: StepRunning})
	logger.Info("Running node", "node", node.ID)
	started := time.Now()

	delta, err := node.Run(ctx, rec)
	if err == nil {
		err = checkOwnership(node, delta)
	}
	elapsed := time.Since(started)
	if err != nil {
		wrapped := &NodeError{Node: node.ID, Err: err}
		e.emit(StepEvent{RunID: runID, Node: node.ID, Status: StepFailed, Duration: elapsed, Err: wrapped})
		logger.Error("Node failed", "node", node.ID, "duration", elapsed, "error", err)
		return rec, wrapped
	}

	e.emit(StepEvent{RunID: runID, Node: node.ID, Status: StepDone, Duration: elapsed})
	logger.Info("Node finished", "node", node.ID, "duration", elapsed, "fields", len(delta))
	return rec.Merge(delta), nil
}

func (e *Executor) emit(ev StepEvent) {
	for _, o := range e.observers {
		o(ev)
	}
}

func checkOwnership(node Node, delta plan.Delta) error {
	for _, f := range delta.Fields() {
		if !node.owns(f) {
			return fmt.Errorf("%w: %s", ErrOwnership, f)
		}
	}
	for _, f := range node.Owns {
		if strings.TrimSpace(delta[f]) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}
	return nil
}

func joinIDs(ids []NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
