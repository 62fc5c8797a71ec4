// Package commandplan persists the compiled command plan and applies the
// stream of per-node Change events the executor runtime emits as it runs
// a command (spec.md section 4.5). Grounded directly on
// original_source/emf-state-machine/src/command_plan.rs: its
// petgraph-indexed CommandGraph becomes a Go graph keyed by the same
// NodeID strings pkg/jobgraph already uses, its Change enum becomes a Go
// tagged struct, and its single-consumer mpsc writer becomes a single
// goroutine draining a buffered Go channel.
package commandplan

import "github.com/lustrefs/manager/pkg/jobgraph"

// State is the rolled-up or per-node execution state, ordered exactly as
// spec.md section 3 specifies: Pending < Running < Completed < Cancelled
// < Errored. The writer recomputes the rolled-up state as a plain integer
// max over this ordering.
type State int

const (
	Pending State = iota
	Running
	Completed
	Cancelled
	Errored
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	case Errored:
		return "Errored"
	default:
		return "Unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// maxState returns the greater of a and b under State's ordering.
func maxState(a, b State) State {
	if a > b {
		return a
	}
	return b
}

// CommandNode is one step's persisted execution record.
type CommandNode struct {
	Action     string  `json:"action"`
	ID         string  `json:"id"`
	State      State   `json:"state"`
	StartedAt  *int64  `json:"started_at,omitempty"`
	FinishedAt *int64  `json:"finished_at,omitempty"`
	Stdout     string  `json:"stdout"`
	Stderr     string  `json:"stderr"`
}

// CommandGraph is one job's persisted graph: nodes in declaration order
// plus edges referencing node ids, mirroring jobgraph.Graph's shape
// (spec.md section 6: "plan encodes a mapping job-name -> { nodes: [...],
// edges: [[from,to], ...] }").
type CommandGraph struct {
	Nodes []CommandNode `json:"nodes"`
	Edges [][2]string   `json:"edges"`
}

// Plan is the full per-command persisted document: one CommandGraph per
// job.
type Plan map[string]*CommandGraph

// BuildPlan converts the compiled job graphs into their initial persisted
// form, every node Pending and every timestamp unset.
func BuildPlan(graphs map[string]*jobgraph.Graph) Plan {
	plan := make(Plan, len(graphs))
	for name, g := range graphs {
		cg := &CommandGraph{
			Nodes: make([]CommandNode, 0, len(g.Order)),
			Edges: make([][2]string, 0, len(g.Edges)),
		}
		for _, id := range g.Order {
			node := g.Nodes[id]
			cg.Nodes = append(cg.Nodes, CommandNode{
				Action: node.Step.Action.String(),
				ID:     node.Step.ID,
				State:  Pending,
			})
		}
		for _, e := range g.Edges {
			cg.Edges = append(cg.Edges, [2]string{string(e.From), string(e.To)})
		}
		plan[name] = cg
	}
	return plan
}

// RolledUpState computes the command-level state as the maximum, across
// every job's every node, under State's ordering (spec.md section 4.5).
func (p Plan) RolledUpState() State {
	state := Pending
	for _, graph := range p {
		for _, node := range graph.Nodes {
			state = maxState(state, node.State)
		}
	}
	return state
}

// nodeIndex locates a node by (job, id) for in-place mutation, or -1 if
// absent.
func (p Plan) nodeIndex(job, id string) int {
	g, ok := p[job]
	if !ok {
		return -1
	}
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}
