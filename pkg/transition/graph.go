// Package transition implements the per-component-type transition graph:
// a directed graph of opaque state tags with named-action edges, whose
// shortest-path query ("minimum action sequence from state A to state B")
// the job-graph builder's callers use to turn a desired end state into a
// concrete sequence of steps. Spec.md section 4.1.
package transition

import "fmt"

// State is an opaque tag identifying a component's state, e.g. "unformatted"
// or "mounted". The graph treats it as a plain comparable value.
type State string

// ErrNoPath is returned by Resolve when no action sequence connects two
// states in a component's transition graph.
type ErrNoPath struct {
	Component  string
	From, To   State
}

func (e *ErrNoPath) Error() string {
	return fmt.Sprintf("no action path from %q to %q in %s transition graph", e.From, e.To, e.Component)
}

// edge is one named action leaving a state, kept in insertion order so
// Resolve's tie-break ("ties are broken by edge insertion order") is
// deterministic.
type edge struct {
	action State
	to     State
}

// Graph is one component type's transition graph: states are nodes, action
// names are edges.
type Graph struct {
	component string
	edges     map[State][]edge
	// order records each source state the first time AddEdge sees it.
	// Resolve does not consult it: BFS determinism comes from each state's
	// edge slice being kept in insertion order.
	order []State
}

// NewGraph creates an empty transition graph for the named component type.
func NewGraph(component string) *Graph {
	return &Graph{component: component, edges: make(map[State][]edge)}
}

// AddEdge records a named action moving the component from `from` to `to`.
// Edges are directed; call AddEdge twice (swapping from/to) for symmetric
// transitions.
func (g *Graph) AddEdge(from State, action string, to State) *Graph {
	if _, ok := g.edges[from]; !ok {
		g.order = append(g.order, from)
	}
	g.edges[from] = append(g.edges[from], edge{action: State(action), to: to})
	return g
}

// Resolve returns the shortest sequence of action names moving the
// component from `from` to `to`. Ties among equal-length paths are broken
// by the edge insertion order recorded in AddEdge, so the result is
// deterministic across runs.
func (g *Graph) Resolve(from, to State) ([]string, error) {
	if from == to {
		return nil, nil
	}

	type frame struct {
		state State
		path  []string
	}

	visited := map[State]bool{from: true}
	queue := []frame{{state: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range g.edges[cur.state] {
			if visited[e.to] {
				continue
			}
			nextPath := append(append([]string{}, cur.path...), string(e.action))
			if e.to == to {
				return nextPath, nil
			}
			visited[e.to] = true
			queue = append(queue, frame{state: e.to, path: nextPath})
		}
	}

	return nil, &ErrNoPath{Component: g.component, From: from, To: to}
}
