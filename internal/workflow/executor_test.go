package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yubzen/tripweaver/internal/plan"
)

// recordingGraph builds the five-node travel shape with nodes that append
// their id to calls.
func recordingGraph(t *testing.T, calls *[]NodeID, override map[NodeID]Func) *Graph {
	t.Helper()

	fields := map[NodeID]plan.Field{
		NodeVisa:       plan.FieldVisa,
		NodeWeather:    plan.FieldWeather,
		NodeItinerary:  plan.FieldItinerary,
		NodeHotel:      plan.FieldHotels,
		NodeActivities: plan.FieldActivities,
	}
	mk := func(id NodeID) Node {
		fn := override[id]
		if fn == nil {
			fn = writer(fields[id], string(id)+" output")
		}
		return Node{ID: id, Owns: []plan.Field{fields[id]}, Run: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			*calls = append(*calls, id)
			return fn(ctx, rec)
		}}
	}

	g, err := NewBuilder().
		Entry(NodeVisa).
		Node(mk(NodeVisa)).
		Node(mk(NodeWeather)).
		Node(mk(NodeItinerary)).
		Node(mk(NodeHotel)).
		Node(mk(NodeActivities)).
		Edge(NodeVisa, NodeWeather).
		Edge(NodeWeather, NodeItinerary).
		Edge(NodeItinerary, NodeHotel).
		Branch(NodeHotel, flagRouter()).
		End(NodeActivities).
		Build()
	require.NoError(t, err)
	return g
}

func TestExecutorFollowsBranch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		activities bool
		want       []NodeID
	}{
		{
			name: "activities not requested",
			want: []NodeID{NodeVisa, NodeWeather, NodeItinerary, NodeHotel},
		},
		{
			name:       "activities requested",
			activities: true,
			want:       []NodeID{NodeVisa, NodeWeather, NodeItinerary, NodeHotel, NodeActivities},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []NodeID
			exec, err := NewExecutor(recordingGraph(t, &calls, nil))
			require.NoError(t, err)

			initial := plan.New(plan.Inputs{IncludeActivities: tt.activities})
			rec, trace, err := exec.RunTraced(context.Background(), initial)
			require.NoError(t, err)

			assert.Equal(t, tt.want, calls)
			assert.Equal(t, tt.want, trace.Visited)
			assert.NotEmpty(t, trace.RunID)
			assert.Equal(t, len(tt.want), rec.Version())
			assert.Equal(t, tt.activities, rec.Has(plan.FieldActivities))
			assert.Equal(t, 0, initial.Version(), "initial record must not be aliased")
		})
	}
}

func TestExecutorNodesSeePredecessorOutput(t *testing.T) {
	t.Parallel()

	var calls []NodeID
	var seen string
	g := recordingGraph(t, &calls, map[NodeID]Func{
		NodeItinerary: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			seen = rec.Value(plan.FieldWeather)
			return plan.Delta{plan.FieldItinerary: "day 1"}, nil
		},
	})
	exec, err := NewExecutor(g)
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), plan.New(plan.Inputs{}))
	require.NoError(t, err)
	assert.Equal(t, "weather output", seen)
}

func TestExecutorPropagatesNodeError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no usable backend")
	var calls []NodeID
	g := recordingGraph(t, &calls, map[NodeID]Func{
		NodeWeather: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
			return nil, boom
		},
	})

	var events []StepEvent
	exec, err := NewExecutor(g, WithObserver(func(ev StepEvent) { events = append(events, ev) }))
	require.NoError(t, err)

	rec, trace, err := exec.RunTraced(context.Background(), plan.New(plan.Inputs{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, NodeWeather, nodeErr.Node)

	assert.Equal(t, []NodeID{NodeVisa, NodeWeather}, calls)
	assert.Equal(t, []NodeID{NodeVisa, NodeWeather}, trace.Visited)
	assert.True(t, rec.Has(plan.FieldVisa))
	assert.False(t, rec.Has(plan.FieldWeather))

	require.Len(t, events, 4)
	assert.Equal(t, StepFailed, events[3].Status)
	assert.Equal(t, NodeWeather, events[3].Node)
}

func TestExecutorEnforcesOwnership(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fn      Func
		wantErr error
	}{
		{
			name: "writes foreign field",
			fn: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
				return plan.Delta{plan.FieldVisa: "v", plan.FieldHotels: "stolen"}, nil
			},
			wantErr: ErrOwnership,
		},
		{
			name: "omits owned field",
			fn: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
				return plan.Delta{}, nil
			},
			wantErr: ErrMissingField,
		},
		{
			name: "blank owned field",
			fn: func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
				return plan.Delta{plan.FieldVisa: "  "}, nil
			},
			wantErr: ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []NodeID
			exec, err := NewExecutor(recordingGraph(t, &calls, map[NodeID]Func{NodeVisa: tt.fn}))
			require.NoError(t, err)

			_, err = exec.Run(context.Background(), plan.New(plan.Inputs{}))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []NodeID{NodeVisa}, calls)
		})
	}
}

func TestExecutorEmitsEventsInOrder(t *testing.T) {
	t.Parallel()

	var calls []NodeID
	var got []string
	exec, err := NewExecutor(recordingGraph(t, &calls, nil), WithObserver(func(ev StepEvent) {
		got = append(got, string(ev.Node)+"-"+string(ev.Status))
	}))
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), plan.New(plan.Inputs{}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"visa-running", "visa-done",
		"weather-running", "weather-done",
		"itinerary-running", "itinerary-done",
		"hotel-running", "hotel-done",
	}, got)
}

func TestNewExecutorNilGraph(t *testing.T) {
	t.Parallel()

	_, err := NewExecutor(nil)
	assert.Error(t, err)
}
