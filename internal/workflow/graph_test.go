package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yubzen/tripweaver/internal/plan"
)

func writer(f plan.Field, value string) Func {
	return func(ctx context.Context, rec plan.Record) (plan.Delta, error) {
		return plan.Delta{f: value}, nil
	}
}

func node(id NodeID, f plan.Field) Node {
	return Node{ID: id, Owns: []plan.Field{f}, Run: writer(f, string(id)+" output")}
}

func flagRouter() Router {
	return Router{
		Destinations: []NodeID{NodeActivities},
		Decide: func(rec plan.Record) Route {
			if rec.Inputs.IncludeActivities {
				return Continue(NodeActivities)
			}
			return Terminate()
		},
	}
}

func TestBuildRejectsMalformedGraphs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		build   func() *Builder
		wantErr error
		msg     string
	}{
		{
			name: "no entry",
			build: func() *Builder {
				return NewBuilder().Node(node(NodeVisa, plan.FieldVisa)).End(NodeVisa)
			},
			wantErr: ErrInvalidGraph,
			msg:     "entry node not set",
		},
		{
			name: "undeclared entry",
			build: func() *Builder {
				return NewBuilder().Entry(NodeWeather).Node(node(NodeVisa, plan.FieldVisa)).End(NodeVisa)
			},
			wantErr: ErrInvalidGraph,
			msg:     "entry node weather is not declared",
		},
		{
			name: "undeclared successor",
			build: func() *Builder {
				return NewBuilder().Entry(NodeVisa).Node(node(NodeVisa, plan.FieldVisa)).Edge(NodeVisa, NodeWeather)
			},
			wantErr: ErrInvalidGraph,
			msg:     "undeclared successor",
		},
		{
			name: "undeclared router destination",
			build: func() *Builder {
				return NewBuilder().Entry(NodeHotel).Node(node(NodeHotel, plan.FieldHotels)).Branch(NodeHotel, flagRouter())
			},
			wantErr: ErrInvalidGraph,
			msg:     "hotel -> activities",
		},
		{
			name: "unknown node id",
			build: func() *Builder {
				return NewBuilder().Entry("packing").Node(Node{ID: "packing", Owns: []plan.Field{plan.FieldVisa}, Run: writer(plan.FieldVisa, "x")}).End("packing")
			},
			wantErr: ErrInvalidGraph,
			msg:     `unknown node "packing"`,
		},
		{
			name: "duplicate node",
			build: func() *Builder {
				return NewBuilder().Entry(NodeVisa).Node(node(NodeVisa, plan.FieldVisa)).Node(node(NodeVisa, plan.FieldVisa)).End(NodeVisa)
			},
			wantErr: ErrInvalidGraph,
			msg:     "declared twice",
		},
		{
			name: "missing outgoing edge",
			build: func() *Builder {
				return NewBuilder().Entry(NodeVisa).Node(node(NodeVisa, plan.FieldVisa))
			},
			wantErr: ErrInvalidGraph,
			msg:     "no outgoing edge",
		},
		{
			name: "shared field ownership",
			build: func() *Builder {
				return NewBuilder().Entry(NodeVisa).
					Node(node(NodeVisa, plan.FieldVisa)).
					Node(node(NodeWeather, plan.FieldVisa)).
					Edge(NodeVisa, NodeWeather).End(NodeWeather)
			},
			wantErr: ErrInvalidGraph,
			msg:     "owned by both visa and weather",
		},
		{
			name: "unreachable node",
			build: func() *Builder {
				return NewBuilder().Entry(NodeVisa).
					Node(node(NodeVisa, plan.FieldVisa)).
					Node(node(NodeWeather, plan.FieldWeather)).
					End(NodeVisa).End(NodeWeather)
			},
			wantErr: ErrInvalidGraph,
			msg:     "not reachable",
		},
		{
			name: "cycle",
			build: func() *Builder {
				return NewBuilder().Entry(NodeVisa).
					Node(node(NodeVisa, plan.FieldVisa)).
					Node(node(NodeWeather, plan.FieldWeather)).
					Edge(NodeVisa, NodeWeather).Edge(NodeWeather, NodeVisa)
			},
			wantErr: ErrCycle,
			msg:     "visa -> weather -> visa",
		},
		{
			name: "router without destinations",
			build: func() *Builder {
				return NewBuilder().Entry(NodeHotel).Node(node(NodeHotel, plan.FieldHotels)).
					Branch(NodeHotel, Router{Decide: func(plan.Record) Route { return Terminate() }})
			},
			wantErr: ErrInvalidGraph,
			msg:     "declares no destinations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.build().Build()
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestSuccessorStaticIgnoresRecord(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().Entry(NodeVisa).
		Node(node(NodeVisa, plan.FieldVisa)).
		Node(node(NodeWeather, plan.FieldWeather)).
		Edge(NodeVisa, NodeWeather).End(NodeWeather).
		Build()
	require.NoError(t, err)

	for _, flag := range []bool{true, false} {
		rec := plan.New(plan.Inputs{IncludeActivities: flag})
		route, err := g.Successor(NodeVisa, rec)
		require.NoError(t, err)
		next, cont := route.Next()
		assert.True(t, cont)
		assert.Equal(t, NodeWeather, next)

		route, err = g.Successor(NodeWeather, rec)
		require.NoError(t, err)
		assert.True(t, route.Terminal())
	}
}

func TestSuccessorRejectsUndeclaredRouterResult(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().Entry(NodeHotel).
		Node(node(NodeHotel, plan.FieldHotels)).
		Node(node(NodeActivities, plan.FieldActivities)).
		Branch(NodeHotel, Router{
			Destinations: []NodeID{NodeActivities},
			Decide:       func(plan.Record) Route { return Continue(NodeVisa) },
		}).
		End(NodeActivities).
		Build()
	require.NoError(t, err)

	_, err = g.Successor(NodeHotel, plan.New(plan.Inputs{}))
	assert.ErrorIs(t, err, ErrBadRoute)
}

func TestMermaidListsEdges(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().Entry(NodeHotel).
		Node(node(NodeHotel, plan.FieldHotels)).
		Node(node(NodeActivities, plan.FieldActivities)).
		Branch(NodeHotel, flagRouter()).
		End(NodeActivities).
		Build()
	require.NoError(t, err)

	out := g.Mermaid()
	assert.True(t, strings.HasPrefix(out, "flowchart TD\n"))
	assert.Contains(t, out, "hotel -.-> activities")
	assert.Contains(t, out, "hotel -.-> finish([end])")
	assert.Contains(t, out, "activities --> finish([end])")
}

func TestRouteString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "terminate", Terminate().String())
	assert.Equal(t, "continue(weather)", Continue(NodeWeather).String())
}
