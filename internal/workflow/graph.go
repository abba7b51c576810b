package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yubzen/tripweaver/internal/plan"
)

// edge is the outgoing side of a node: a static route or a router.
type edge struct {
	static Route
	router *Router
}

func (e edge) targets() []NodeID {
	if e.router != nil {
		return e.router.Destinations
	}
	if next, ok := e.static.Next(); ok {
		return []NodeID{next}
	}
	return nil
}

// Builder collects nodes and edges. Problems are reported together by Build.
type Builder struct {
	entry NodeID
	order []NodeID
	nodes map[NodeID]Node
	edges map[NodeID]edge
	errs  []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[NodeID]Node),
		edges: make(map[NodeID]edge),
	}
}

// Entry sets the node the walk starts at.
func (b *Builder) Entry(id NodeID) *Builder {
	b.entry = id
	return b
}

// Node declares a node.
func (b *Builder) Node(n Node) *Builder {
	switch {
	case !n.ID.Known():
		b.errs = append(b.errs, invalidf("unknown node %q", n.ID))
	case n.Run == nil:
		b.errs = append(b.errs, invalidf("node %s has no function", n.ID))
	case len(n.Owns) == 0:
		b.errs = append(b.errs, invalidf("node %s owns no fields", n.ID))
	}
	if _, exists := b.nodes[n.ID]; exists {
		b.errs = append(b.errs, invalidf("node %s declared twice", n.ID))
		return b
	}
	n.Owns = append([]plan.Field(nil), n.Owns...)
	b.nodes[n.ID] = n
	b.order = append(b.order, n.ID)
	return b
}

// Edge declares a static successor.
func (b *Builder) Edge(from, to NodeID) *Builder {
	return b.setEdge(from, edge{static: Continue(to)})
}

// End declares that from is a terminal node.
func (b *Builder) End(from NodeID) *Builder {
	return b.setEdge(from, edge{static: Terminate()})
}

// Branch declares a conditional successor.
func (b *Builder) Branch(from NodeID, r Router) *Builder {
	if r.Decide == nil {
		b.errs = append(b.errs, invalidf("router on %s has no decision function", from))
	}
	if len(r.Destinations) == 0 {
		b.errs = append(b.errs, invalidf("router on %s declares no destinations", from))
	}
	r.Destinations = append([]NodeID(nil), r.Destinations...)
	return b.setEdge(from, edge{router: &r})
}

func (b *Builder) setEdge(from NodeID, e edge) *Builder {
	if _, exists := b.edges[from]; exists {
		b.errs = append(b.errs, invalidf("node %s has more than one outgoing edge", from))
		return b
	}
	b.edges[from] = e
	return b
}

// Build validates the topology and returns an immutable Graph.
func (b *Builder) Build() (*Graph, error) {
	errs := append([]error(nil), b.errs...)

	if b.entry == "" {
		errs = append(errs, invalidf("entry node not set"))
	} else if _, ok := b.nodes[b.entry]; !ok {
		errs = append(errs, invalidf("entry node %s is not declared", b.entry))
	}

	for from, e := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, invalidf("edge from undeclared node %s", from))
		}
		for _, to := range e.targets() {
			if _, ok := b.nodes[to]; !ok {
				errs = append(errs, invalidf("edge %s -> %s references an undeclared successor", from, to))
			}
		}
	}

	owners := make(map[plan.Field]NodeID)
	for _, id := range b.order {
		if _, ok := b.edges[id]; !ok {
			errs = append(errs, invalidf("node %s has no outgoing edge (use End for terminal nodes)", id))
		}
		for _, f := range b.nodes[id].Owns {
			if !f.Known() {
				errs = append(errs, invalidf("node %s owns unknown field %q", id, f))
				continue
			}
			if prev, taken := owners[f]; taken {
				errs = append(errs, invalidf("field %s owned by both %s and %s", f, prev, id))
				continue
			}
			owners[f] = id
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g := &Graph{
		entry: b.entry,
		order: append([]NodeID(nil), b.order...),
		nodes: make(map[NodeID]Node, len(b.nodes)),
		edges: make(map[NodeID]edge, len(b.edges)),
	}
	for k, v := range b.nodes {
		g.nodes[k] = v
	}
	for k, v := range b.edges {
		g.edges[k] = v
	}

	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	reachable := g.reachable()
	for _, id := range g.order {
		if !reachable[id] {
			return nil, invalidf("node %s is not reachable from %s", id, g.entry)
		}
	}
	return g, nil
}

// Graph is a validated, immutable topology. It is safe for concurrent use.
type Graph struct {
	entry NodeID
	order []NodeID
	nodes map[NodeID]Node
	edges map[NodeID]edge
}

// Entry returns the starting node.
func (g *Graph) Entry() NodeID {
	return g.entry
}

// Nodes returns node ids in declaration order.
func (g *Graph) Nodes() []NodeID {
	return append([]NodeID(nil), g.order...)
}

// Node looks up a declared node.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Successor computes the route out of node for the given record. Static
// edges ignore the record.
func (g *Graph) Successor(node NodeID, rec plan.Record) (Route, error) {
	e, ok := g.edges[node]
	if !ok {
		return Route{}, invalidf("node %s is not declared", node)
	}
	if e.router == nil {
		return e.static, nil
	}
	route := e.router.Decide(rec)
	if next, cont := route.Next(); cont && !e.router.allows(next) {
		return Route{}, fmt.Errorf("%w: %s -> %s", ErrBadRoute, node, next)
	}
	return route, nil
}

func (g *Graph) reachable() map[NodeID]bool {
	seen := make(map[NodeID]bool)
	queue := []NodeID{g.entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		queue = append(queue, g.edges[current].targets()...)
	}
	return seen
}

func (g *Graph) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[NodeID]int, len(g.nodes))
	var stack []NodeID

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		switch marks[id] {
		case visiting:
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			path := append(append([]NodeID(nil), stack[start:]...), id)
			return cycleError(path)
		case done:
			return nil
		}
		marks[id] = visiting
		stack = append(stack, id)
		for _, next := range g.edges[id].targets() {
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		marks[id] = done
		return nil
	}

	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Mermaid renders the topology as a Mermaid flowchart.
func (g *Graph) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")
	sb.WriteString(fmt.Sprintf("    start([start]) --> %s\n", g.entry))
	for _, id := range g.order {
		e := g.edges[id]
		if e.router != nil {
			for _, to := range e.router.Destinations {
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id, to))
			}
			sb.WriteString(fmt.Sprintf("    %s -.-> finish([end])\n", id))
			continue
		}
		if next, ok := e.static.Next(); ok {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, next))
		} else {
			sb.WriteString(fmt.Sprintf("    %s --> finish([end])\n", id))
		}
	}
	return sb.String()
}
