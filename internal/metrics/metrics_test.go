package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/workflow"
)

func TestCandidateOutcomes(t *testing.T) {
	t.Parallel()

	m := New()
	c := llm.Candidate{Provider: "groq", Model: "llama-3.3-70b-versatile"}
	m.CandidateOutcome(c, llm.OutcomeRateLimited)
	m.CandidateOutcome(c, llm.OutcomeRateLimited)
	m.CandidateOutcome(c, llm.OutcomeSelected)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.candidates.WithLabelValues("groq", c.Model, "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.candidates.WithLabelValues("groq", c.Model, "selected")))
}

func TestObserveStepSkipsRunning(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveStep(workflow.StepEvent{Node: workflow.NodeVisa, Status: workflow.StepRunning})
	m.ObserveStep(workflow.StepEvent{Node: workflow.NodeVisa, Status: workflow.StepDone, Duration: 2 * time.Second})
	m.ObserveStep(workflow.StepEvent{Node: workflow.NodeHotel, Status: workflow.StepFailed, Duration: time.Second})

	assert.Equal(t, 2, testutil.CollectAndCount(m.steps))
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.RunFinished(nil)
	m.RunFinished(errors.New("exhausted"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tripweaver_runs_total{result="ok"} 1`)
	assert.Contains(t, string(body), `tripweaver_runs_total{result="error"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
