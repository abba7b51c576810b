// Package workflow runs a fixed, validated graph of nodes over a plan.Record.
//
// A Graph is built once through a Builder and is immutable afterwards. The
// Executor walks it sequentially: run the current node, check that its delta
// only touches the fields it owns, merge, then ask the graph for the next
// node until a Terminate route is reached.
package workflow

import (
	"context"

	"github.com/yubzen/tripweaver/internal/plan"
)

// NodeID is the closed set of node identities the travel workflow knows about.
type NodeID string

const (
	NodeVisa       NodeID = "visa"
	NodeWeather    NodeID = "weather"
	NodeItinerary  NodeID = "itinerary"
	NodeHotel      NodeID = "hotel"
	NodeActivities NodeID = "activities"
)

// NodeIDs returns every known node identity.
func NodeIDs() []NodeID {
	return []NodeID{NodeVisa, NodeWeather, NodeItinerary, NodeHotel, NodeActivities}
}

// Known reports whether id belongs to the closed set.
func (id NodeID) Known() bool {
	for _, known := range NodeIDs() {
		if id == known {
			return true
		}
	}
	return false
}

// Func is the unit of work wrapped by a node. It must return a delta holding
// every field the node owns and nothing else. Upstream data failures are
// expected to be folded into a degraded value; a returned error halts the run.
type Func func(ctx context.Context, rec plan.Record) (plan.Delta, error)

// Node wraps one unit of work.
type Node struct {
	ID   NodeID
	Owns []plan.Field
	Run  Func
}

func (n Node) owns(f plan.Field) bool {
	for _, o := range n.Owns {
		if o == f {
			return true
		}
	}
	return false
}
