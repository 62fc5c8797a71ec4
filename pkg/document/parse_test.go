package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeStepJob = `
version: 1
jobs:
  test_job1:
    name: "Test Job 1"
    steps:
      - action: host.ssh_command
        id: command1
        inputs:
          host: node1
          command: "echo one"
      - action: host.ssh_command
        id: command2
        inputs:
          host: node1
          command: "echo two"
      - action: host.ssh_command
        id: command3
        inputs:
          host: node1
          command: "echo three"
`

func TestParseThreeStepLinearJob(t *testing.T) {
	doc, err := Parse(strings.NewReader(threeStepJob))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Version)
	require.Len(t, doc.JobOrder, 1)
	job := doc.Jobs["test_job1"]
	require.Len(t, job.Steps, 3)
	assert.Equal(t, "command1", job.Steps[0].ID)
	assert.Equal(t, "command2", job.Steps[1].ID)
	assert.Equal(t, "command3", job.Steps[2].ID)

	in, ok := job.Steps[0].Input.(SSHCommandInput)
	require.True(t, ok)
	assert.Equal(t, "node1", in.Host)
	assert.Equal(t, "echo one", in.Command)
}

func TestParseSameTextTwiceYieldsEqualDocuments(t *testing.T) {
	doc1, err := Parse(strings.NewReader(threeStepJob))
	require.NoError(t, err)

	doc2, err := Parse(strings.NewReader(threeStepJob))
	require.NoError(t, err)

	assert.Equal(t, doc1.JobOrder, doc2.JobOrder)
	assert.Equal(t, doc1.Jobs["test_job1"].Steps, doc2.Jobs["test_job1"].Steps)
}

func TestParseRejectsUnknownAction(t *testing.T) {
	const doc = `
version: 1
jobs:
  j1:
    name: "J1"
    steps:
      - action: host.teleport
        id: s1
        inputs: {}
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestParseRejectsDuplicateStepID(t *testing.T) {
	const doc = `
version: 1
jobs:
  j1:
    name: "J1"
    steps:
      - action: host.ssh_command
        id: dup
        inputs: {host: n1, command: "echo 1"}
      - action: host.ssh_command
        id: dup
        inputs: {host: n1, command: "echo 2"}
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step id")
}

func TestParseRejectsUnresolvedWaitFor(t *testing.T) {
	const doc = `
version: 1
jobs:
  j1:
    name: "J1"
    wait_for: [ghost]
    steps:
      - action: host.ssh_command
        id: s1
        inputs: {host: n1, command: "echo 1"}
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job")
}

func TestParseRejectsInvalidInputSchema(t *testing.T) {
	const doc = `
version: 1
jobs:
  j1:
    name: "J1"
    steps:
      - action: host.ssh_command
        id: s1
        inputs: {host: n1}
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command is required")
}

func TestParsePreservesJobOrder(t *testing.T) {
	const doc = `
version: 1
jobs:
  zebra:
    name: "Z"
    steps: []
  alpha:
    name: "A"
    steps: []
`
	d, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra", "alpha"}, d.JobOrder)
}
