// Package planner implements the execution planner (spec.md section 4.3):
// decomposing a job's step graph into stacks, maximal linear chains whose
// heads have no predecessor in the graph. Stacks are the unit of parallel
// dispatch — the executor runtime spawns one task per stack and lets
// independent stacks run concurrently.
//
// Grounded on the topological in-degree/queue pattern in the teacher's
// pkg/engine/executor.go (inDegree, dependents, queue), repurposed here
// from "drive nodes to completion" into a planning-time, I/O-free
// partition of nodes into chains.
package planner

import (
	"sort"

	"github.com/lustrefs/manager/pkg/jobgraph"
)

// Stack is a maximal linear chain: its nodes run strictly in order, and
// two stacks may run concurrently with respect to each other.
type Stack struct {
	Nodes []jobgraph.NodeID
}

// Decompose partitions a job graph into stacks. Because the job-graph
// builder only ever emits one-node-per-step chains (spec.md section 4.2),
// in practice every job decomposes into exactly one stack; the general
// chain-walking algorithm below is what spec.md section 4.3 describes and
// remains correct if a job graph ever grows internal branching.
func Decompose(g *jobgraph.Graph) []Stack {
	succ := make(map[jobgraph.NodeID][]jobgraph.NodeID, len(g.Order))
	indeg := make(map[jobgraph.NodeID]int, len(g.Order))
	for _, id := range g.Order {
		indeg[id] = 0
	}
	for _, e := range g.Edges {
		succ[e.From] = append(succ[e.From], e.To)
		indeg[e.To]++
	}

	var entries []jobgraph.NodeID
	for _, id := range g.Order {
		if indeg[id] == 0 {
			entries = append(entries, id)
		}
	}
	sortByTieBreak(entries, g, indeg)

	visited := make(map[jobgraph.NodeID]bool, len(g.Order))
	var stacks []Stack
	for _, start := range entries {
		if visited[start] {
			continue
		}
		stacks = append(stacks, walkChain(start, succ, indeg, visited))
	}

	// Guard against any node a zero-in-degree seed didn't reach (only
	// possible if the graph were cyclic, which jobgraph.Assemble already
	// rejects upstream) by attaching it as its own singleton stack rather
	// than silently dropping work.
	for _, id := range g.Order {
		if !visited[id] {
			visited[id] = true
			stacks = append(stacks, Stack{Nodes: []jobgraph.NodeID{id}})
		}
	}

	return stacks
}

// walkChain follows cur forward as long as the chain is structurally
// exclusive: cur has exactly one successor, and that successor has no
// other predecessor. The chain ends the moment either condition fails.
func walkChain(start jobgraph.NodeID, succ map[jobgraph.NodeID][]jobgraph.NodeID, indeg map[jobgraph.NodeID]int, visited map[jobgraph.NodeID]bool) Stack {
	var stack Stack
	cur := start
	for {
		visited[cur] = true
		stack.Nodes = append(stack.Nodes, cur)

		s := succ[cur]
		if len(s) != 1 {
			break
		}
		next := s[0]
		if visited[next] || indeg[next] != 1 {
			break
		}
		cur = next
	}
	return stack
}

// sortByTieBreak orders candidate nodes by (largest in-degree,
// lexicographically smallest description, smallest id) — spec.md section
// 4.3's traversal tie-break, which produces stable ordering useful to
// tests.
func sortByTieBreak(nodes []jobgraph.NodeID, g *jobgraph.Graph, indeg map[jobgraph.NodeID]int) {
	description := func(id jobgraph.NodeID) string {
		return g.Nodes[id].Step.Action.String()
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if indeg[a] != indeg[b] {
			return indeg[a] > indeg[b]
		}
		if description(a) != description(b) {
			return description(a) < description(b)
		}
		return a < b
	})
}
