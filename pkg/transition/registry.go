package transition

// Registry holds one transition Graph per component type. SPEC_FULL.md
// section 3 names the concrete Lustre component kinds the control plane
// tracks: Host, Filesystem, Mgt, Mdt, Ost, Snapshot.
type Registry struct {
	graphs map[string]*Graph
}

// NewRegistry returns a Registry pre-seeded with a transition graph for
// every component kind this control plane manages.
func NewRegistry() *Registry {
	r := &Registry{graphs: make(map[string]*Graph)}
	r.graphs["host"] = hostGraph()
	r.graphs["filesystem"] = filesystemGraph()
	r.graphs["mgt"] = targetGraph("mgt")
	r.graphs["mdt"] = targetGraph("mdt")
	r.graphs["ost"] = targetGraph("ost")
	r.graphs["snapshot"] = snapshotGraph()
	return r
}

// Resolve finds the shortest action sequence moving a component of the
// given kind from one state to another.
func (r *Registry) Resolve(component string, from, to State) ([]string, error) {
	g, ok := r.graphs[component]
	if !ok {
		return nil, &ErrNoPath{Component: component, From: from, To: to}
	}
	return g.Resolve(from, to)
}

// Graph returns the registered graph for a component kind, or nil if none
// is registered.
func (r *Registry) Graph(component string) *Graph {
	return r.graphs[component]
}

const (
	StateUnreachable State = "unreachable"
	StateUp          State = "up"
)

func hostGraph() *Graph {
	g := NewGraph("host")
	g.AddEdge(StateUnreachable, "ssh_command", StateUp)
	g.AddEdge(StateUp, "reboot", StateUnreachable)
	g.AddEdge(StateUnreachable, "reboot", StateUp)
	return g
}

const (
	TargetUnformatted State = "unformatted"
	TargetFormatted   State = "formatted"
)

func targetGraph(component string) *Graph {
	g := NewGraph(component)
	g.AddEdge(TargetUnformatted, "format", TargetFormatted)
	return g
}

const (
	FilesystemUnknown State = "unknown"
	FilesystemCreated State = "created"
	FilesystemStarted State = "started"
)

func filesystemGraph() *Graph {
	g := NewGraph("filesystem")
	g.AddEdge(FilesystemUnknown, "create", FilesystemCreated)
	g.AddEdge(FilesystemCreated, "start", FilesystemStarted)
	g.AddEdge(FilesystemStarted, "stop", FilesystemCreated)
	return g
}

const (
	SnapshotAbsent  State = "absent"
	SnapshotPresent State = "present"
	SnapshotMounted State = "mounted"
)

func snapshotGraph() *Graph {
	g := NewGraph("snapshot")
	g.AddEdge(SnapshotAbsent, "create", SnapshotPresent)
	g.AddEdge(SnapshotPresent, "mount", SnapshotMounted)
	g.AddEdge(SnapshotMounted, "unmount", SnapshotPresent)
	g.AddEdge(SnapshotPresent, "destroy", SnapshotAbsent)
	return g
}
