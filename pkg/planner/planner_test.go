package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustrefs/manager/pkg/document"
	"github.com/lustrefs/manager/pkg/jobgraph"
)

func TestDecomposeSingleStepJobIsOneStackOfOneNode(t *testing.T) {
	doc, err := document.Parse(strings.NewReader(`
version: 1
jobs:
  solo:
    name: "Solo"
    steps:
      - action: host.ssh_command
        id: only
        inputs: {host: n1, command: "echo hi"}
`))
	require.NoError(t, err)

	g := jobgraph.Build(doc.Jobs["solo"])
	stacks := Decompose(g)
	require.Len(t, stacks, 1)
	assert.Equal(t, []jobgraph.NodeID{"only"}, stacks[0].Nodes)
}

func TestDecomposeThreeStepJobIsOneStackInOrder(t *testing.T) {
	doc, err := document.Parse(strings.NewReader(`
version: 1
jobs:
  test_job1:
    name: "Test Job 1"
    steps:
      - action: host.ssh_command
        id: command1
        inputs: {host: node1, command: "echo one"}
      - action: host.ssh_command
        id: command2
        inputs: {host: node1, command: "echo two"}
      - action: host.ssh_command
        id: command3
        inputs: {host: node1, command: "echo three"}
`))
	require.NoError(t, err)

	g := jobgraph.Build(doc.Jobs["test_job1"])
	stacks := Decompose(g)
	require.Len(t, stacks, 1)
	assert.Equal(t, []jobgraph.NodeID{"command1", "command2", "command3"}, stacks[0].Nodes)
}

// Scenario 2 from spec.md section 8: a document with two jobs that have no
// wait_for relation between them decomposes, job by job, into two
// independent stacks suitable for concurrent dispatch.
func TestDecomposeIndependentJobsYieldIndependentStacks(t *testing.T) {
	doc, err := document.Parse(strings.NewReader(`
version: 1
jobs:
  test_job1:
    name: "Test Job 1"
    steps:
      - action: host.ssh_command
        id: command1
        inputs: {host: node1, command: "echo one"}
      - action: host.ssh_command
        id: command2
        inputs: {host: node1, command: "echo two"}
      - action: host.ssh_command
        id: command3
        inputs: {host: node1, command: "echo three"}
  test_job2:
    name: "Test Job 2"
    steps:
      - action: host.ssh_command
        id: step4
        inputs: {host: node2, command: "echo four"}
      - action: host.ssh_command
        id: step5
        inputs: {host: node2, command: "echo five"}
`))
	require.NoError(t, err)

	plan, err := jobgraph.Assemble(doc)
	require.NoError(t, err)
	require.Empty(t, plan.Edges)

	stack1 := Decompose(plan.Jobs["test_job1"])
	stack2 := Decompose(plan.Jobs["test_job2"])
	require.Len(t, stack1, 1)
	require.Len(t, stack2, 1)
	assert.Equal(t, []jobgraph.NodeID{"command1", "command2", "command3"}, stack1[0].Nodes)
	assert.Equal(t, []jobgraph.NodeID{"step4", "step5"}, stack2[0].Nodes)
}

// Tie-break ordering (largest in-degree, lexicographically smallest
// description, smallest id) determines which zero-in-degree node a
// multi-entry graph is walked from first.
func TestDecomposeTieBreaksEntriesByDescriptionThenID(t *testing.T) {
	g := &jobgraph.Graph{
		JobName: "multi",
		Nodes: map[jobgraph.NodeID]*jobgraph.Node{
			"b": {ID: "b", Step: document.Step{ID: "b", Action: document.ActionRef{Component: "host", Action: "ssh_command"}}},
			"a": {ID: "a", Step: document.Step{ID: "a", Action: document.ActionRef{Component: "host", Action: "reboot"}}},
		},
		Order: []jobgraph.NodeID{"b", "a"},
	}

	stacks := Decompose(g)
	require.Len(t, stacks, 2)
	// "host.reboot" < "host.ssh_command" lexicographically, so node "a"
	// is walked first despite "b" appearing first in declaration order.
	assert.Equal(t, []jobgraph.NodeID{"a"}, stacks[0].Nodes)
	assert.Equal(t, []jobgraph.NodeID{"b"}, stacks[1].Nodes)
}
