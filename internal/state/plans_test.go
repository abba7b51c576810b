package state

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/workflow"
)

func samplePlan(t *testing.T, destination string) plan.Record {
	t.Helper()
	start, err := plan.ParseDate("2026-11-02")
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	end, err := plan.ParseDate("2026-11-06")
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	return plan.New(plan.Inputs{
		Origin:            "Canada",
		Destination:       destination,
		Budget:            plan.BudgetLuxury,
		Style:             plan.StyleRomantic,
		PartySize:         2,
		StartDate:         start,
		EndDate:           end,
		Preferences:       "wine",
		IncludeActivities: true,
	}).Merge(plan.Delta{
		plan.FieldVisa:    "No visa required.",
		plan.FieldWeather: "Sunny.",
	})
}

func TestSavePlanRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	rec := samplePlan(t, "Lisbon")
	trace := workflow.Trace{RunID: "run-1", Visited: []workflow.NodeID{workflow.NodeVisa, workflow.NodeWeather}}
	steps := []workflow.StepEvent{
		{Node: workflow.NodeVisa, Status: workflow.StepRunning},
		{Node: workflow.NodeVisa, Status: workflow.StepDone, Duration: 1500 * time.Millisecond},
		{Node: workflow.NodeWeather, Status: workflow.StepRunning},
		{Node: workflow.NodeWeather, Status: workflow.StepFailed, Err: errors.New("boom")},
	}
	if err := db.SavePlan(context.Background(), trace, rec, steps); err != nil {
		t.Fatalf("save plan: %v", err)
	}

	got, err := db.GetPlan(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.Destination != "Lisbon" || got.StartDate != "2026-11-02" {
		t.Fatalf("unexpected summary: %#v", got.PlanSummary)
	}
	if got.Record.Version() != rec.Version() {
		t.Fatalf("expected version %d, got %d", rec.Version(), got.Record.Version())
	}
	if got.Record.Value(plan.FieldWeather) != "Sunny." {
		t.Fatalf("weather section lost: %#v", got.Record.Derived())
	}
	if got.Record.Has(plan.FieldItinerary) {
		t.Fatalf("unexpected itinerary section")
	}
	if !got.Record.IncludeActivities || got.Record.Preferences != "wine" || !got.Record.StartDate.Equal(rec.StartDate) {
		t.Fatalf("inputs not restored: %#v", got.Record.Inputs)
	}
	if len(got.Visited) != 2 || got.Visited[1] != "weather" {
		t.Fatalf("unexpected visited: %v", got.Visited)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("expected 2 finished steps, got %#v", got.Steps)
	}
	if got.Steps[0].Duration != 1500*time.Millisecond || got.Steps[1].Error != "boom" {
		t.Fatalf("unexpected steps: %#v", got.Steps)
	}
}

func TestGetPlanByPrefixAndMissing(t *testing.T) {
	t.Parallel()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	trace := workflow.Trace{RunID: "8f14e45f-ceea-467f-a0e6-1d3f2c6b9a10"}
	if err := db.SavePlan(context.Background(), trace, samplePlan(t, "Rome"), nil); err != nil {
		t.Fatalf("save plan: %v", err)
	}

	got, err := db.GetPlan(context.Background(), "8f14e45f")
	if err != nil {
		t.Fatalf("get by prefix: %v", err)
	}
	if got.ID != trace.RunID {
		t.Fatalf("expected %s, got %s", trace.RunID, got.ID)
	}

	if _, err := db.GetPlan(context.Background(), "nope"); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
	if err := db.SavePlan(context.Background(), workflow.Trace{}, samplePlan(t, "Rome"), nil); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestGetPlanRejectsAmbiguousAndWildcardPrefixes(t *testing.T) {
	t.Parallel()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	for id, dest := range map[string]string{"abc-1": "Lisbon", "abc-2": "Porto", "abc": "Faro"} {
		if err := db.SavePlan(context.Background(), workflow.Trace{RunID: id}, samplePlan(t, dest), nil); err != nil {
			t.Fatalf("save plan %s: %v", id, err)
		}
	}

	if _, err := db.GetPlan(context.Background(), "abc-"); !errors.Is(err, ErrAmbiguousPlanID) {
		t.Fatalf("expected ErrAmbiguousPlanID, got %v", err)
	}

	exact, err := db.GetPlan(context.Background(), "abc")
	if err != nil {
		t.Fatalf("get exact: %v", err)
	}
	if exact.Destination != "Faro" {
		t.Fatalf("expected exact id to win, got %s", exact.Destination)
	}

	unique, err := db.GetPlan(context.Background(), "abc-2")
	if err != nil {
		t.Fatalf("get abc-2: %v", err)
	}
	if unique.Destination != "Porto" {
		t.Fatalf("expected Porto, got %s", unique.Destination)
	}

	for _, pattern := range []string{"%", "_bc", "abc_1", `abc\`} {
		if _, err := db.GetPlan(context.Background(), pattern); !errors.Is(err, ErrPlanNotFound) {
			t.Fatalf("expected %q to match nothing, got %v", pattern, err)
		}
	}
}

func TestListPlansNewestFirstAndPruned(t *testing.T) {
	t.Parallel()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	db.limit = 3

	for i := 0; i < 5; i++ {
		trace := workflow.Trace{RunID: fmt.Sprintf("run-%d", i)}
		if err := db.SavePlan(context.Background(), trace, samplePlan(t, fmt.Sprintf("City %d", i)), nil); err != nil {
			t.Fatalf("save plan %d: %v", i, err)
		}
	}

	all, err := db.ListPlans(context.Background(), 0)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 plans after pruning, got %d", len(all))
	}
	if all[0].ID != "run-4" || all[2].ID != "run-2" {
		t.Fatalf("unexpected order: %s .. %s", all[0].ID, all[2].ID)
	}

	two, err := db.ListPlans(context.Background(), 2)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(two) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(two))
	}

	if _, err := db.GetPlan(context.Background(), "run-0"); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected pruned plan to be gone, got %v", err)
	}
	var sections int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM plan_sections WHERE plan_id = 'run-0'").Scan(&sections); err != nil {
		t.Fatalf("count sections: %v", err)
	}
	if sections != 0 {
		t.Fatalf("expected sections of pruned plan to cascade, got %d", sections)
	}
}
