// Package api exposes the control plane's submission surface (spec.md
// section 6, "Submitted command endpoint"): run a document, query a
// command's current plan, cancel a running command. This is the one
// entry point cmd/managerd and cmd/lctlctl call into; every other
// package is an implementation detail behind it.
package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/lustrefs/manager/pkg/commandplan"
	"github.com/lustrefs/manager/pkg/document"
	"github.com/lustrefs/manager/pkg/executor"
	"github.com/lustrefs/manager/pkg/logger"
)

// Manager is the control plane's Go-level facade: run(document) ->
// command_id, query(command_id) -> plan, cancel(command_id).
type Manager interface {
	Run(ctx context.Context, doc document.Document) (int64, error)
	Query(ctx context.Context, commandID int64) (commandplan.Plan, commandplan.State, error)
	Cancel(ctx context.Context, commandID int64) error
}

type manager struct {
	fabric executor.Invoker
	store  commandplan.PlanStore
	log    *logger.Logger

	mu         sync.Mutex
	executions map[int64]*executor.Execution
}

// NewManager wires a Manager over a fabric and a store.
func NewManager(fabric executor.Invoker, store commandplan.PlanStore, log *logger.Logger) Manager {
	return &manager{
		fabric:     fabric,
		store:      store,
		log:        log,
		executions: make(map[int64]*executor.Execution),
	}
}

// Run compiles doc, registers the plan, and starts it running
// asynchronously. It returns as soon as the plan is persisted.
func (m *manager) Run(ctx context.Context, doc document.Document) (int64, error) {
	exec, err := executor.Compile(ctx, doc, m.fabric, m.store, m.log)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.executions[exec.PlanID] = exec
	m.mu.Unlock()

	go exec.Run()

	return exec.PlanID, nil
}

// Query returns the current persisted plan and rolled-up state for a
// command.
func (m *manager) Query(ctx context.Context, commandID int64) (commandplan.Plan, commandplan.State, error) {
	return m.store.Get(ctx, commandID)
}

// Cancel requests cancellation of a running command. Cancelling a
// command this process started that has already finished is a no-op: the
// persisted state is left as-is. A command this process never started
// (e.g. after a restart) yields an error.
func (m *manager) Cancel(_ context.Context, commandID int64) error {
	m.mu.Lock()
	exec, ok := m.executions[commandID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("command %d is not running in this process", commandID)
	}
	exec.Cancel()
	return nil
}
