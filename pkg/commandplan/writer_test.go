package commandplan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustrefs/manager/pkg/document"
	"github.com/lustrefs/manager/pkg/jobgraph"
	"github.com/lustrefs/manager/pkg/logger"
)

type fakePersister struct {
	mu    sync.Mutex
	plans []Plan
	states []State
}

func (f *fakePersister) Update(_ context.Context, _ int64, plan Plan, state State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, plan)
	f.states = append(f.states, state)
	return nil
}

func (f *fakePersister) last() (Plan, State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plans[len(f.plans)-1], f.states[len(f.states)-1]
}

func threeStepPlan(t *testing.T) Plan {
	t.Helper()
	job := document.Job{
		Name: "Test Job 1",
		Steps: []document.Step{
			{ID: "command1", Action: document.ActionRef{Component: "host", Action: "ssh_command"}},
			{ID: "command2", Action: document.ActionRef{Component: "host", Action: "ssh_command"}},
			{ID: "command3", Action: document.ActionRef{Component: "host", Action: "ssh_command"}},
		},
	}
	g := jobgraph.Build(job)
	return BuildPlan(map[string]*jobgraph.Graph{"test_job1": g})
}

func TestBuildPlanStartsEveryNodePending(t *testing.T) {
	plan := threeStepPlan(t)
	require.Len(t, plan["test_job1"].Nodes, 3)
	for _, n := range plan["test_job1"].Nodes {
		assert.Equal(t, Pending, n.State)
	}
	assert.Equal(t, Pending, plan.RolledUpState())
}

func TestWriterAppliesStateChangesAndPersists(t *testing.T) {
	plan := threeStepPlan(t)
	fp := &fakePersister{}
	w := NewWriter(fp, 1, plan, logger.Get())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Send(NewStateChange("test_job1", "command1", Running))
	w.Send(NewStateChange("test_job1", "command1", Completed))
	w.Send(NewStateChange("test_job1", "command2", Errored))

	require.Eventually(t, func() bool {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		return len(fp.states) >= 3
	}, time.Second, 5*time.Millisecond)

	_, state := fp.last()
	assert.Equal(t, Errored, state)
}

// Idempotence: applying the same State/Started/Ended change twice yields
// the same post-state as applying it once.
func TestApplyStateChangeIsIdempotent(t *testing.T) {
	plan := threeStepPlan(t)
	plan.Apply(NewStateChange("test_job1", "command1", Completed))
	plan.Apply(NewStateChange("test_job1", "command1", Completed))

	idx := plan.nodeIndex("test_job1", "command1")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, Completed, plan["test_job1"].Nodes[idx].State)
}

// Stdout/stderr are append-only: applying the same Stdout change twice
// appends twice, not idempotent.
func TestApplyStdoutChangeIsAppendOnly(t *testing.T) {
	plan := threeStepPlan(t)
	plan.Apply(NewStdoutChange("test_job1", "command1", []byte("hi")))
	plan.Apply(NewStdoutChange("test_job1", "command1", []byte("hi")))

	idx := plan.nodeIndex("test_job1", "command1")
	assert.Equal(t, "hihi", plan["test_job1"].Nodes[idx].Stdout)
}

// Scenario 6 (spec.md section 8): rolled-up state equals Errored given a
// mix of Completed, Cancelled and Errored nodes.
func TestRolledUpStateIsMaxAcrossNodes(t *testing.T) {
	plan := threeStepPlan(t)
	plan.Apply(NewStateChange("test_job1", "command1", Completed))
	plan.Apply(NewStateChange("test_job1", "command2", Cancelled))
	plan.Apply(NewStateChange("test_job1", "command3", Errored))

	assert.Equal(t, Errored, plan.RolledUpState())
}

// Cancelling the plan leaves already-terminal nodes alone and flips every
// Pending/Running node to Cancelled (spec.md section 4.6).
func TestApplyCancelAllFlipsOnlyNonTerminalNodes(t *testing.T) {
	plan := threeStepPlan(t)
	plan.Apply(NewStateChange("test_job1", "command1", Completed))
	plan.Apply(NewStateChange("test_job1", "command2", Running))
	// command3 is left at its initial Pending.

	plan.Apply(NewCancelAllChange())

	idx1 := plan.nodeIndex("test_job1", "command1")
	idx2 := plan.nodeIndex("test_job1", "command2")
	idx3 := plan.nodeIndex("test_job1", "command3")

	assert.Equal(t, Completed, plan["test_job1"].Nodes[idx1].State)
	assert.Equal(t, Cancelled, plan["test_job1"].Nodes[idx2].State)
	assert.Equal(t, Cancelled, plan["test_job1"].Nodes[idx3].State)
}

func TestWriterCancelNonTerminalPersistsCancelledRollup(t *testing.T) {
	plan := threeStepPlan(t)
	fp := &fakePersister{}
	w := NewWriter(fp, 1, plan, logger.Get())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Send(NewStateChange("test_job1", "command1", Completed))
	w.CancelNonTerminal()

	require.Eventually(t, func() bool {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		return len(fp.states) > 0 && fp.states[len(fp.states)-1] == Cancelled
	}, time.Second, 5*time.Millisecond)
}

// Send after Close must not panic: Cancel can race the command's own
// completion.
func TestSendAfterCloseIsNoop(t *testing.T) {
	plan := threeStepPlan(t)
	fp := &fakePersister{}
	w := NewWriter(fp, 1, plan, logger.Get())

	w.Close()
	assert.NotPanics(t, func() {
		w.Send(NewStateChange("test_job1", "command1", Cancelled))
		w.Close()
	})
}

func TestStepWriterStdoutForwardsFramedChanges(t *testing.T) {
	plan := threeStepPlan(t)
	fp := &fakePersister{}
	w := NewWriter(fp, 1, plan, logger.Get())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	sw := w.StepWriter("test_job1", "command1")
	_, err := sw.Stdout().Write([]byte("hello\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		if len(fp.plans) == 0 {
			return false
		}
		idx := fp.plans[len(fp.plans)-1].nodeIndex("test_job1", "command1")
		return idx >= 0 && fp.plans[len(fp.plans)-1]["test_job1"].Nodes[idx].Stdout == "hello\n"
	}, time.Second, 5*time.Millisecond)
}
