package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustrefs/manager/pkg/commandplan"
	"github.com/lustrefs/manager/pkg/document"
	"github.com/lustrefs/manager/pkg/logger"
)

type memStore struct {
	mu     sync.Mutex
	nextID int64
	plans  map[int64]commandplan.Plan
	states map[int64]commandplan.State
}

func newMemStore() *memStore {
	return &memStore{plans: map[int64]commandplan.Plan{}, states: map[int64]commandplan.State{}}
}

func (m *memStore) Insert(_ context.Context, plan commandplan.Plan) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.plans[m.nextID] = plan
	m.states[m.nextID] = commandplan.Pending
	return m.nextID, nil
}

func (m *memStore) Update(_ context.Context, id int64, plan commandplan.Plan, state commandplan.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[id] = plan
	m.states[id] = state
	return nil
}

func (m *memStore) Get(_ context.Context, id int64) (commandplan.Plan, commandplan.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plans[id], m.states[id], nil
}

type noopInvoker struct{}

func (noopInvoker) Invoke(context.Context, string, string, string, interface{}) (json.RawMessage, error) {
	return json.RawMessage(`null`), nil
}

func TestRunThenQueryReachesCompleted(t *testing.T) {
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

	store := newMemStore()
	mgr := NewManager(noopInvoker{}, store, logger.Get())

	id, err := mgr.Run(context.Background(), doc)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, state, err := mgr.Query(context.Background(), id)
		return err == nil && state == commandplan.Completed
	}, time.Second, 5*time.Millisecond)
}

func TestCancelUnknownCommandReturnsError(t *testing.T) {
	mgr := NewManager(noopInvoker{}, newMemStore(), logger.Get())
	err := mgr.Cancel(context.Background(), 999)
	assert.Error(t, err)
}

type blockingInvoker struct {
	started chan struct{}
	once    sync.Once
}

func newBlockingInvoker() *blockingInvoker {
	return &blockingInvoker{started: make(chan struct{})}
}

func (b *blockingInvoker) Invoke(ctx context.Context, _, _, _ string, _ interface{}) (json.RawMessage, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

// Cancelling a command that is actually mid-run leaves every non-terminal
// node Cancelled, not stuck Pending or Running forever (spec.md section
// 4.6).
func TestCancelMidRunMarksNonTerminalNodesCancelled(t *testing.T) {
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

	store := newMemStore()
	invoker := newBlockingInvoker()
	mgr := NewManager(invoker, store, logger.Get())

	id, err := mgr.Run(context.Background(), doc)
	require.NoError(t, err)

	select {
	case <-invoker.started:
	case <-time.After(2 * time.Second):
		t.Fatal("step never started")
	}

	require.NoError(t, mgr.Cancel(context.Background(), id))

	require.Eventually(t, func() bool {
		_, state, err := mgr.Query(context.Background(), id)
		return err == nil && state == commandplan.Cancelled
	}, time.Second, 5*time.Millisecond)
}
