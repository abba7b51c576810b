package workflow

import "github.com/yubzen/tripweaver/internal/plan"

// Route is the outcome of asking the graph where to go next: either continue
// to a node or terminate the walk.
type Route struct {
	next NodeID
	cont bool
}

// Continue routes to next.
func Continue(next NodeID) Route {
	return Route{next: next, cont: true}
}

// Terminate ends the walk.
func Terminate() Route {
	return Route{}
}

// Next returns the next node and true, or "" and false for a terminal route.
func (r Route) Next() (NodeID, bool) {
	return r.next, r.cont
}

// Terminal reports whether the route ends the walk.
func (r Route) Terminal() bool {
	return !r.cont
}

func (r Route) String() string {
	if !r.cont {
		return "terminate"
	}
	return "continue(" + string(r.next) + ")"
}

// Router isolates a branching decision. Decide must be a pure function of the
// record and may only return routes to the declared Destinations or Terminate.
type Router struct {
	Destinations []NodeID
	Decide       func(rec plan.Record) Route
}

func (r Router) allows(id NodeID) bool {
	for _, d := range r.Destinations {
		if d == id {
			return true
		}
	}
	return false
}
