package jobgraph

import (
	"fmt"

	"github.com/lustrefs/manager/pkg/document"
)

// InterJobEdge connects the tail node of a wait_for dependency to the head
// node of the dependent job — the cross-job edges spec.md section 3 says
// are "added at plan-assembly time". These are not serialized into any
// single job's per-job edge list (spec.md section 6 scopes `edges` to one
// job's command graph); the executor derives each job's wait_for
// prerequisites from them. Cycle detection does not use them: Assemble
// walks the document's wait_for relation directly.
type InterJobEdge struct {
	FromJob, ToJob   string
	From, To         NodeID
}

// Plan is the full per-document assembly: one Graph per job plus the
// cross-job wait_for edges between them.
type Plan struct {
	Jobs  map[string]*Graph
	Edges []InterJobEdge
}

// Assemble builds every job's Graph and validates that the document's
// wait_for relations form a DAG over jobs (a job cannot, transitively,
// wait_for itself).
func Assemble(doc document.Document) (*Plan, error) {
	graphs := BuildAll(doc)

	plan := &Plan{Jobs: graphs}
	for _, name := range doc.JobOrder {
		job := doc.Jobs[name]
		toHead := graphs[name].HeadNode()
		for _, dep := range job.WaitFor {
			depGraph, ok := graphs[dep]
			if !ok {
				return nil, fmt.Errorf("job %q wait_for references unknown job %q", name, dep)
			}
			plan.Edges = append(plan.Edges, InterJobEdge{
				FromJob: dep,
				ToJob:   name,
				From:    depGraph.TailNode(),
				To:      toHead,
			})
		}
	}

	if cyc := findJobCycle(doc); cyc != nil {
		return nil, fmt.Errorf("wait_for cycle detected: %v", cyc)
	}

	return plan, nil
}

// findJobCycle runs a DFS over the wait_for relation and returns the first
// cycle found, or nil if the relation is acyclic.
func findJobCycle(doc document.Document) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(doc.Jobs))
	var path []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = gray
		path = append(path, name)

		for _, dep := range doc.Jobs[name].WaitFor {
			switch color[dep] {
			case gray:
				// Found the back-edge; slice path from dep's first
				// occurrence to build a readable cycle.
				for i, n := range path {
					if n == dep {
						cycle = append(append([]string{}, path[i:]...), dep)
						break
					}
				}
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		return false
	}

	for _, name := range doc.JobOrder {
		if color[name] == white {
			if visit(name) {
				return cycle
			}
		}
	}
	return nil
}
