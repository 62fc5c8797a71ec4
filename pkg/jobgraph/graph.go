// Package jobgraph builds the per-job DAG described in spec.md section
// 4.2: one node per step in declaration order, with an edge from each step
// to the next. The builder is pure — no I/O, no transition-graph lookups —
// because by the time a Document reaches this package its steps are
// already concrete. Grounded on the teacher's plan.ExecutionGraph
// (pkg/plan/graph_plan.go), generalized from host-fanned-out nodes to
// one-node-per-step nodes, since a step's target host is a plain string
// field on its Input rather than a set the graph fans out over.
package jobgraph

import "github.com/lustrefs/manager/pkg/document"

// NodeID uniquely identifies a node within a Graph: a job's step id.
type NodeID string

// Edge is a directed edge from one node to the next, serialized verbatim
// into the persisted command plan's per-job edge list (spec.md section 6).
type Edge struct {
	From NodeID
	To   NodeID
}

// Node wraps one step with its position in the graph.
type Node struct {
	ID   NodeID
	Step document.Step
}

// Graph is one job's step DAG: steps within a job are strictly sequential,
// so this is always a simple chain, but it is represented as a general
// node/edge graph so the planner (pkg/planner) and the persisted plan
// (pkg/commandplan) share one shape.
type Graph struct {
	JobName string
	Nodes   map[NodeID]*Node
	// Order is the declaration order of step ids; Nodes is keyed for O(1)
	// lookup but iteration order over a Go map is not stable, so anything
	// that must walk nodes in step order uses Order.
	Order []NodeID
	Edges []Edge
}

// Build constructs the DAG for a single job: one node per step, an edge
// from step n to step n+1.
func Build(job document.Job) *Graph {
	g := &Graph{
		JobName: job.Name,
		Nodes:   make(map[NodeID]*Node, len(job.Steps)),
	}

	var prev NodeID
	for i, step := range job.Steps {
		id := NodeID(step.ID)
		g.Nodes[id] = &Node{ID: id, Step: step}
		g.Order = append(g.Order, id)

		if i > 0 {
			g.Edges = append(g.Edges, Edge{From: prev, To: id})
		}
		prev = id
	}
	return g
}

// BuildAll builds one Graph per job in the document, keyed by job name.
func BuildAll(doc document.Document) map[string]*Graph {
	graphs := make(map[string]*Graph, len(doc.Jobs))
	for name, job := range doc.Jobs {
		graphs[name] = Build(job)
	}
	return graphs
}

// HeadNode returns the first node of the graph (the job's entry point for
// inter-job wait_for edges), or "" if the graph has no steps.
func (g *Graph) HeadNode() NodeID {
	if len(g.Order) == 0 {
		return ""
	}
	return g.Order[0]
}

// TailNode returns the last node of the graph (the job's exit point for
// inter-job wait_for edges), or "" if the graph has no steps.
func (g *Graph) TailNode() NodeID {
	if len(g.Order) == 0 {
		return ""
	}
	return g.Order[len(g.Order)-1]
}
