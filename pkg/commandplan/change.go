package commandplan

// ChangeKind discriminates the mutations the plan writer applies: the five
// per-node variants from spec.md section 4.5, plus ChangeCancelAll for the
// whole-plan cancellation sweep spec.md section 4.6 requires.
type ChangeKind int

const (
	ChangeStarted ChangeKind = iota
	ChangeEnded
	ChangeState
	ChangeStdout
	ChangeStderr
	// ChangeCancelAll marks every node across the whole plan that is not
	// already in a terminal state (Completed, Cancelled, Errored) as
	// Cancelled. JobName/NodeID are unused for this kind: it targets the
	// plan, not a single node (spec.md section 4.6: a command cancel
	// request "marks all non-terminal nodes Cancelled via the plan
	// writer").
	ChangeCancelAll
)

// Change is one mutation to a single node, identified by (JobName,
// NodeID), applied serially by the writer goroutine.
type Change struct {
	JobName string
	NodeID  string
	Kind    ChangeKind

	// At is set for ChangeStarted/ChangeEnded, a Unix-epoch millisecond
	// timestamp (Date.Now()-equivalent values are supplied by the caller,
	// never generated inside this package).
	At int64
	// State is set for ChangeState.
	State State
	// Data is set for ChangeStdout/ChangeStderr: raw bytes, appended
	// UTF-8-lossy to the node's buffer.
	Data []byte
}

func NewStartedChange(job, node string, at int64) Change {
	return Change{JobName: job, NodeID: node, Kind: ChangeStarted, At: at}
}

func NewEndedChange(job, node string, at int64) Change {
	return Change{JobName: job, NodeID: node, Kind: ChangeEnded, At: at}
}

func NewStateChange(job, node string, state State) Change {
	return Change{JobName: job, NodeID: node, Kind: ChangeState, State: state}
}

func NewStdoutChange(job, node string, data []byte) Change {
	return Change{JobName: job, NodeID: node, Kind: ChangeStdout, Data: data}
}

func NewStderrChange(job, node string, data []byte) Change {
	return Change{JobName: job, NodeID: node, Kind: ChangeStderr, Data: data}
}

func NewCancelAllChange() Change {
	return Change{Kind: ChangeCancelAll}
}

// Apply mutates the node (job, id) in place according to the change.
// Unknown (job, id) pairs are silently ignored — the writer logs those at
// the call site, mirroring the original's "Could not find node" warning.
func (p Plan) Apply(c Change) bool {
	if c.Kind == ChangeCancelAll {
		for _, g := range p {
			for i := range g.Nodes {
				if g.Nodes[i].State == Pending || g.Nodes[i].State == Running {
					g.Nodes[i].State = Cancelled
				}
			}
		}
		return true
	}

	idx := p.nodeIndex(c.JobName, c.NodeID)
	if idx < 0 {
		return false
	}
	node := &p[c.JobName].Nodes[idx]

	switch c.Kind {
	case ChangeStarted:
		at := c.At
		node.StartedAt = &at
	case ChangeEnded:
		at := c.At
		node.FinishedAt = &at
	case ChangeState:
		node.State = c.State
	case ChangeStdout:
		node.Stdout += string(c.Data)
	case ChangeStderr:
		node.Stderr += string(c.Data)
	}
	return true
}
