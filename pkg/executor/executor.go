// Package executor is the runtime that drives a compiled document to
// completion: it inserts the initial plan row, opens the plan writer,
// decomposes each job into stacks, and spawns one task per stack — honoring
// wait_for between jobs and cancellation within a command (spec.md section
// 4.6). Grounded on the teacher's worker-pool/semaphore pattern in
// pkg/engine/executor.go, adapted from "process one big dependency graph"
// into "a job task per job, gated on sibling job completion signals, each
// spawning one goroutine per stack".
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lustrefs/manager/pkg/commandplan"
	"github.com/lustrefs/manager/pkg/cperrors"
	"github.com/lustrefs/manager/pkg/document"
	"github.com/lustrefs/manager/pkg/jobgraph"
	"github.com/lustrefs/manager/pkg/logger"
	"github.com/lustrefs/manager/pkg/planner"
)

// maxConcurrentStacks bounds how many stack tasks run at once across the
// whole process, the Go equivalent of the teacher's semaphore-bounded
// worker pool (pkg/engine/executor.go's e.maxWorkers).
const maxConcurrentStacks = 32

// Invoker is the subset of *session.Fabric the executor needs to
// dispatch a step, narrow enough to substitute with a fake in tests that
// have no agent transport available.
type Invoker interface {
	Invoke(ctx context.Context, host, plugin, action string, args interface{}) (json.RawMessage, error)
}

// Execution is one compiled, running (or completed) command.
type Execution struct {
	PlanID int64

	fabric Invoker
	writer *commandplan.Writer
	plan   *jobgraph.Plan
	log    *logger.Logger
	sem    chan struct{}

	cancel context.CancelFunc
	runCtx context.Context
	done   chan struct{}
}

// Compile validates and builds the job graphs for doc, persists the
// initial plan, and returns an Execution ready for Run.
func Compile(ctx context.Context, doc document.Document, fabric Invoker, store commandplan.PlanStore, log *logger.Logger) (*Execution, error) {
	jobPlan, err := jobgraph.Assemble(doc)
	if err != nil {
		return nil, cperrors.NewPlanningError("assemble job graphs: %v", err)
	}

	cpPlan := commandplan.BuildPlan(jobPlan.Jobs)
	id, err := store.Insert(ctx, cpPlan)
	if err != nil {
		return nil, err
	}

	writer := commandplan.NewWriter(store, id, cpPlan, log)
	runCtx, cancel := context.WithCancel(context.Background())

	return &Execution{
		PlanID: id,
		fabric: fabric,
		writer: writer,
		plan:   jobPlan,
		log:    log,
		sem:    make(chan struct{}, maxConcurrentStacks),
		cancel: cancel,
		runCtx: runCtx,
		done:   make(chan struct{}),
	}, nil
}

// Run drives every job to completion and blocks until the command
// finishes or is cancelled, and until the plan writer has applied every
// change queued before that. Safe to call exactly once.
func (e *Execution) Run() {
	defer close(e.done)

	writerCtx, stopWriter := context.WithCancel(context.Background())
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		e.writer.Run(writerCtx)
	}()
	defer func() {
		e.writer.Close()
		<-writerDone
		stopWriter()
	}()

	jobDone := make(map[string]chan struct{}, len(e.plan.Jobs))
	for name := range e.plan.Jobs {
		jobDone[name] = make(chan struct{})
	}

	prereqs := make(map[string][]string, len(e.plan.Edges))
	for _, edge := range e.plan.Edges {
		prereqs[edge.ToJob] = append(prereqs[edge.ToJob], edge.FromJob)
	}

	var group errgroup.Group
	for name, g := range e.plan.Jobs {
		name, g := name, g
		group.Go(func() error {
			defer close(jobDone[name])

			if !e.awaitPrereqs(prereqs[name], jobDone) {
				return nil
			}
			e.runJob(name, g)
			return nil
		})
	}
	group.Wait()
}

// Cancel marks the command cancelled: every stack task observes this at
// its next suspension point, every outstanding RPC fabric call is
// abandoned, and every node not already in a terminal state is marked
// Cancelled in the persisted plan (spec.md section 4.6) — including jobs
// still waiting on wait_for prerequisites and stacks still waiting for a
// worker slot, which otherwise never touch their nodes at all.
func (e *Execution) Cancel() {
	// The sweep is queued before the context is cancelled, so it reaches
	// the writer before Run can observe the cancellation and close it.
	e.writer.CancelNonTerminal()
	e.cancel()
}

// Wait blocks until Run has returned.
func (e *Execution) Wait() {
	<-e.done
}

func (e *Execution) awaitPrereqs(deps []string, jobDone map[string]chan struct{}) bool {
	for _, dep := range deps {
		select {
		case <-jobDone[dep]:
		case <-e.runCtx.Done():
			return false
		}
	}
	return true
}

func (e *Execution) runJob(jobName string, g *jobgraph.Graph) {
	stacks := planner.Decompose(g)

	var group errgroup.Group
	for _, stack := range stacks {
		stack := stack
		group.Go(func() error {
			select {
			case e.sem <- struct{}{}:
			case <-e.runCtx.Done():
				return nil
			}
			defer func() { <-e.sem }()

			e.runStack(jobName, g, stack)
			return nil
		})
	}
	group.Wait()
}

// runStack iterates a stack's nodes in order, dispatching each to the RPC
// fabric. The first failure marks the remainder of the stack Cancelled
// and aborts it (spec.md section 4.6).
func (e *Execution) runStack(jobName string, g *jobgraph.Graph, stack planner.Stack) {
	for i, nodeID := range stack.Nodes {
		select {
		case <-e.runCtx.Done():
			e.cancelRemainder(jobName, stack.Nodes[i:])
			return
		default:
		}

		step := g.Nodes[nodeID].Step
		stepWriter := e.writer.StepWriter(jobName, string(nodeID))

		stepWriter.Started(nowMillis())
		stepWriter.SetState(commandplan.Running)

		_, err := e.fabric.Invoke(e.runCtx, step.Input.TargetHost(), "action_runner", step.Action.String(), step.Input)

		if err != nil {
			if errors.Is(err, context.Canceled) {
				// Cancellation, not a failure (spec.md section 7.6): the
				// in-flight node becomes Cancelled, same as the rest of
				// the stack, rather than Errored.
				stepWriter.SetState(commandplan.Cancelled)
				stepWriter.Ended(nowMillis())
				e.cancelRemainder(jobName, stack.Nodes[i+1:])
				return
			}

			stepWriter.SetState(commandplan.Errored)
			stepWriter.Ended(nowMillis())
			e.log.Warnw("step failed", "job", jobName, "step", nodeID, "action", step.Action.String(), "err", err)
			e.cancelRemainder(jobName, stack.Nodes[i+1:])
			return
		}

		stepWriter.SetState(commandplan.Completed)
		stepWriter.Ended(nowMillis())
	}
}

func (e *Execution) cancelRemainder(jobName string, remaining []jobgraph.NodeID) {
	for _, nodeID := range remaining {
		e.writer.StepWriter(jobName, string(nodeID)).SetState(commandplan.Cancelled)
	}
}

// nowMillis stamps a Change's timestamp. Isolated in its own function so
// the single real time.Now() call in this package is easy to find and
// substitute in tests.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
