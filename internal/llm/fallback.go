package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yubzen/tripweaver/internal/providers"
)

// ErrNoUsableBackend is the terminal failure of an acquisition.
var ErrNoUsableBackend = errors.New("no usable backend")

// DefaultProbeTimeout bounds each liveness probe.
const DefaultProbeTimeout = 15 * time.Second

// Outcome classifies what happened to one candidate.
type Outcome string

const (
	OutcomeSelected    Outcome = "selected"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)

// Attempt records one candidate tried during an acquisition.
type Attempt struct {
	Candidate Candidate
	Outcome   Outcome
	Err       error
}

// Acquisition is the full result of a successful Acquire.
type Acquisition struct {
	Handle   Handle
	Attempts []Attempt
}

// ExhaustedError is returned when every candidate failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrNoUsableBackend.Error() + ": no candidates configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Candidate, a.Outcome))
	}
	return fmt.Sprintf("%s: all %d candidates failed (%s)", ErrNoUsableBackend, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() error { return ErrNoUsableBackend }

// HandleBuilder constructs a handle for a candidate without probing it.
type HandleBuilder interface {
	NewHandle(ctx context.Context, c Candidate, temperature float64) (Handle, error)
}

// OutcomeRecorder is notified of each candidate outcome.
type OutcomeRecorder interface {
	CandidateOutcome(c Candidate, o Outcome)
}

// FallbackClient acquires a working model from an ordered candidate list.
// It keeps no memory between acquisitions: every call starts at the head.
type FallbackClient struct {
	builder      HandleBuilder
	probeTimeout time.Duration
	logger       *slog.Logger
	recorder     OutcomeRecorder
}

// FallbackOption configures a FallbackClient.
type FallbackOption func(*FallbackClient)

// WithProbeTimeout sets the per-probe timeout.
func WithProbeTimeout(d time.Duration) FallbackOption {
	return func(c *FallbackClient) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FallbackOption {
	return func(c *FallbackClient) {
		c.logger = logger
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r OutcomeRecorder) FallbackOption {
	return func(c *FallbackClient) {
		c.recorder = r
	}
}

// NewFallbackClient creates a fallback client over builder.
func NewFallbackClient(builder HandleBuilder, opts ...FallbackOption) *FallbackClient {
	c := &FallbackClient{
		builder:      builder,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire returns the first candidate, in declaration order, whose probe
// succeeds. The only error it returns is an *ExhaustedError.
func (c *FallbackClient) Acquire(ctx context.Context, candidates []Candidate, temperature float64) (Handle, error) {
	acq, err := c.AcquireDetailed(ctx, candidates, temperature)
	if err != nil {
		return nil, err
	}
	return acq.Handle, nil
}

// AcquireDetailed is Acquire that also reports every attempt made.
func (c *FallbackClient) AcquireDetailed(ctx context.Context, candidates []Candidate, temperature float64) (Acquisition, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := make([]Attempt, 0, len(candidates))

	for _, cand := range candidates {
		handle, err := c.try(ctx, cand, temperature)
		if err == nil {
			attempts = append(attempts, Attempt{Candidate: cand, Outcome: OutcomeSelected})
			c.record(cand, OutcomeSelected)
			if len(attempts) > 1 {
				c.logger.Info("Using fallback model", "candidate", cand.String(), "skipped", len(attempts)-1)
			}
			return Acquisition{Handle: handle, Attempts: attempts}, nil
		}

		outcome := OutcomeFailed
		if providers.IsRateLimited(err) {
			outcome = OutcomeRateLimited
			c.logger.Warn("Candidate rate limited, trying next", "candidate", cand.String(), "error", err)
		} else {
			c.logger.Warn("Candidate unavailable, trying next", "candidate", cand.String(), "error", err)
		}
		attempts = append(attempts, Attempt{Candidate: cand, Outcome: outcome, Err: err})
		c.record(cand, outcome)
	}

	c.logger.Error("All model candidates exhausted", "candidates", len(candidates))
	return Acquisition{Attempts: attempts}, &ExhaustedError{Attempts: attempts}
}

func (c *FallbackClient) try(ctx context.Context, cand Candidate, temperature float64) (Handle, error) {
	handle, err := c.builder.NewHandle(ctx, cand, temperature)
	if err != nil {
		return nil, err
	}
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	if err := handle.Probe(probeCtx); err != nil {
		return nil, err
	}
	return handle, nil
}

func (c *FallbackClient) record(cand Candidate, o Outcome) {
	if c.recorder != nil {
		c.recorder.CandidateOutcome(cand, o)
	}
}
