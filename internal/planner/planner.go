package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yubzen/tripweaver/internal/agents"
	"github.com/yubzen/tripweaver/internal/metrics"
	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/workflow"
)

// Archive stores finished plans. It is never read back during a run.
type Archive interface {
	SavePlan(ctx context.Context, trace workflow.Trace, rec plan.Record, steps []workflow.StepEvent) error
}

// Result is a finished run.
type Result struct {
	Record plan.Record
	Trace  workflow.Trace
	Steps  []workflow.StepEvent
}

// Planner runs the travel graph. It is safe for concurrent use: runs share
// only the immutable graph and the goroutine-safe collaborators.
type Planner struct {
	graph   *workflow.Graph
	logger  *slog.Logger
	metrics *metrics.Metrics
	archive Archive
}

type Option func(*Planner)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Planner) {
		p.metrics = m
	}
}

// WithArchive saves every successful run.
func WithArchive(a Archive) Option {
	return func(p *Planner) {
		p.archive = a
	}
}

// New builds the travel graph over d.
func New(d agents.Deps, opts ...Option) (*Planner, error) {
	p := &Planner{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if d.Logger == nil {
		d.Logger = p.logger
	}
	g, err := NewTravelGraph(d)
	if err != nil {
		return nil, fmt.Errorf("build travel graph: %w", err)
	}
	p.graph = g
	return p, nil
}

func (p *Planner) Graph() *workflow.Graph {
	return p.graph
}

// RunTravelPlanning runs the whole pipeline and returns the final record.
func (p *Planner) RunTravelPlanning(ctx context.Context, rec plan.Record) (plan.Record, error) {
	res, err := p.Plan(ctx, rec)
	return res.Record, err
}

// Plan validates rec's inputs, runs the graph and archives the result.
// Observers receive every step event of this run only.
func (p *Planner) Plan(ctx context.Context, rec plan.Record, observers ...workflow.Observer) (Result, error) {
	if err := rec.Validate(); err != nil {
		return Result{Record: rec}, err
	}

	var (
		mu    sync.Mutex
		steps []workflow.StepEvent
	)
	opts := []workflow.ExecutorOption{
		workflow.WithLogger(p.logger),
		workflow.WithObserver(func(ev workflow.StepEvent) {
			mu.Lock()
			steps = append(steps, ev)
			mu.Unlock()
		}),
	}
	if p.metrics != nil {
		opts = append(opts, workflow.WithObserver(p.metrics.ObserveStep))
	}
	for _, o := range observers {
		opts = append(opts, workflow.WithObserver(o))
	}

	exec, err := workflow.NewExecutor(p.graph, opts...)
	if err != nil {
		return Result{Record: rec}, err
	}

	final, trace, err := exec.RunTraced(ctx, rec)
	if p.metrics != nil {
		p.metrics.RunFinished(err)
	}
	mu.Lock()
	res := Result{Record: final, Trace: trace, Steps: steps}
	mu.Unlock()
	if err != nil {
		p.logger.Error("Travel planning failed", "run_id", trace.RunID, "destination", rec.Destination, "error", err)
		return res, err
	}

	p.logger.Info("Travel plan ready", "run_id", trace.RunID, "destination", rec.Destination, "version", final.Version())
	if p.archive != nil {
		if err := p.archive.SavePlan(ctx, trace, final, res.Steps); err != nil {
			p.logger.Warn("Could not archive plan", "run_id", trace.RunID, "error", err)
		}
	}
	return res, nil
}
