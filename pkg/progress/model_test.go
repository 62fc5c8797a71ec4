package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustrefs/manager/pkg/commandplan"
)

func TestUpdateStopsPollingOnTerminalState(t *testing.T) {
	m := NewModel(1, 10*time.Millisecond, func() (commandplan.Plan, commandplan.State, error) {
		return commandplan.Plan{}, commandplan.Completed, nil
	})

	updated, cmd := m.Update(pollResultMsg{plan: commandplan.Plan{}, state: commandplan.Completed})
	mm := updated.(Model)
	assert.True(t, mm.done)
	assert.Nil(t, cmd)
}

func TestUpdateKeepsPollingOnNonTerminalState(t *testing.T) {
	m := NewModel(1, 10*time.Millisecond, func() (commandplan.Plan, commandplan.State, error) {
		return commandplan.Plan{}, commandplan.Running, nil
	})

	updated, cmd := m.Update(pollResultMsg{plan: commandplan.Plan{}, state: commandplan.Running})
	mm := updated.(Model)
	assert.False(t, mm.done)
	require.NotNil(t, cmd)
}

func TestViewRendersJobsAndNodes(t *testing.T) {
	plan := commandplan.Plan{
		"test_job1": {
			Nodes: []commandplan.CommandNode{
				{Action: "host.ssh_command", ID: "command1", State: commandplan.Running},
			},
		},
	}
	m := NewModel(1, time.Second, func() (commandplan.Plan, commandplan.State, error) {
		return plan, commandplan.Running, nil
	})
	m.plan = plan
	m.state = commandplan.Running

	out := m.View()
	assert.Contains(t, out, "test_job1")
	assert.Contains(t, out, "command1")
}
