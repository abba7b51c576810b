// Package planner wires the travel nodes into the workflow graph and runs it.
package planner

import (
	"github.com/yubzen/tripweaver/internal/agents"
	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/workflow"
)

// ActivitiesRouter continues to the activities node only when the trip asks
// for activity suggestions.
func ActivitiesRouter() workflow.Router {
	return workflow.Router{
		Destinations: []workflow.NodeID{workflow.NodeActivities},
		Decide: func(rec plan.Record) workflow.Route {
			if rec.IncludeActivities {
				return workflow.Continue(workflow.NodeActivities)
			}
			return workflow.Terminate()
		},
	}
}

// NewTravelGraph builds
//
//	visa -> weather -> itinerary -> hotel -> (activities | end)
func NewTravelGraph(d agents.Deps) (*workflow.Graph, error) {
	b := workflow.NewBuilder().Entry(workflow.NodeVisa)
	for _, n := range agents.Nodes(d) {
		b.Node(n)
	}
	return b.
		Edge(workflow.NodeVisa, workflow.NodeWeather).
		Edge(workflow.NodeWeather, workflow.NodeItinerary).
		Edge(workflow.NodeItinerary, workflow.NodeHotel).
		Branch(workflow.NodeHotel, ActivitiesRouter()).
		End(workflow.NodeActivities).
		Build()
}

// PlannedSteps is the visit order the travel graph will take for rec.
func PlannedSteps(rec plan.Record) []workflow.NodeID {
	steps := []workflow.NodeID{workflow.NodeVisa, workflow.NodeWeather, workflow.NodeItinerary, workflow.NodeHotel}
	if rec.IncludeActivities {
		steps = append(steps, workflow.NodeActivities)
	}
	return steps
}
