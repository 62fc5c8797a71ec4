package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustrefs/manager/pkg/agentwire"
	"github.com/lustrefs/manager/pkg/logger"
)

type sentMessage struct {
	host, plugin string
	msg          agentwire.Message
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (f *fakeTransport) Send(_ context.Context, host, plugin string, msg agentwire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return assert.AnError
	}
	f.sent = append(f.sent, sentMessage{host, plugin, msg})
	return nil
}

func (f *fakeTransport) snapshot() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestFabric(transport Transport) *Fabric {
	return NewFabric(transport, 200*time.Millisecond, logger.Get())
}

func TestInvokeWaitsForSessionThenTimesOut(t *testing.T) {
	f := newTestFabric(&fakeTransport{})

	start := time.Now()
	_, err := f.Invoke(context.Background(), "h1", "action_runner", "host.ssh_command", map[string]string{"command": "echo 1"})
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestInvokeDispatchesAndCompletesOnReply(t *testing.T) {
	transport := &fakeTransport{}
	f := newTestFabric(transport)
	f.SessionCreate(context.Background(), "h1", "action_runner", ID("s1"))

	resultCh := make(chan json.RawMessage, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := f.Invoke(context.Background(), "h1", "action_runner", "host.ssh_command", map[string]string{"command": "echo 1"})
		resultCh <- v
		errCh <- err
	}()

	var actionID string
	require.Eventually(t, func() bool {
		sent := transport.snapshot()
		if len(sent) == 0 {
			return false
		}
		data, ok := sent[0].msg.(agentwire.Data)
		if !ok {
			return false
		}
		req, err := agentwire.DecodeActionRequest(data)
		require.NoError(t, err)
		actionID = req.ActionID
		return true
	}, time.Second, 5*time.Millisecond)

	replyBody, err := json.Marshal(agentwire.ActionReply{ID: actionID, Result: json.RawMessage(`"ok"`)})
	require.NoError(t, err)
	require.NoError(t, f.Data("h1", "action_runner", ID("s1"), replyBody))

	require.NoError(t, <-errCh)
	assert.JSONEq(t, `"ok"`, string(<-resultCh))
}

// Scenario 3 (spec.md section 8): session supersession re-dispatches all
// in-flight action payloads exactly once on the new session.
func TestSessionCreateRedispatchesInFlightActionsOnSupersession(t *testing.T) {
	transport := &fakeTransport{}
	f := newTestFabric(transport)
	f.SessionCreate(context.Background(), "h1", "action_runner", ID("s1"))

	af1 := f.rpc.Insert(ID("s1"), ActionID("a1"), json.RawMessage(`{"action_id":"a1"}`))
	af2 := f.rpc.Insert(ID("s1"), ActionID("a2"), json.RawMessage(`{"action_id":"a2"}`))

	f.SessionCreate(context.Background(), "h1", "action_runner", ID("s2"))

	sent := transport.snapshot()
	require.Len(t, sent, 2)
	seen := map[string]bool{}
	for _, s := range sent {
		data := s.msg.(agentwire.Data)
		assert.Equal(t, "s2", data.SessionID)
		seen[string(data.Body)] = true
	}
	assert.True(t, seen[`{"action_id":"a1"}`])
	assert.True(t, seen[`{"action_id":"a2"}`])

	current, ok := f.sessions.Current("h1", "action_runner")
	require.True(t, ok)
	assert.Equal(t, ID("s2"), current)

	// Completion channels are preserved across the re-dispatch.
	require.True(t, f.rpc.Has(ID("s2"), "a1"))
	require.True(t, f.rpc.Has(ID("s2"), "a2"))
	select {
	case <-af1.done:
		t.Fatal("a1 should still be pending")
	default:
	}
	select {
	case <-af2.done:
		t.Fatal("a2 should still be pending")
	default:
	}
}

// Scenario 4: session termination fails every in-flight action under it.
func TestSessionTerminateFailsInFlightActions(t *testing.T) {
	f := newTestFabric(&fakeTransport{})
	f.SessionCreate(context.Background(), "h1", "action_runner", ID("s1"))
	af := f.rpc.Insert(ID("s1"), ActionID("a1"), json.RawMessage(`{}`))

	f.SessionTerminate("h1", "action_runner", ID("s1"))

	res := <-af.done
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "session terminated")
	assert.False(t, f.rpc.Has(ID("s1"), "a1"))
}

// Scenario 5: cancelling an unknown action id is a no-op success.
func TestCancelUnknownActionIsNoopSuccess(t *testing.T) {
	transport := &fakeTransport{}
	f := newTestFabric(transport)
	f.SessionCreate(context.Background(), "h1", "action_runner", ID("s1"))

	err := f.Cancel(context.Background(), "h1", "action_runner", ActionID("ghost"))
	require.NoError(t, err)
	assert.Empty(t, transport.snapshot())
}

func TestCancelKnownActionSendsMessageAndCompletesWithNull(t *testing.T) {
	transport := &fakeTransport{}
	f := newTestFabric(transport)
	f.SessionCreate(context.Background(), "h1", "action_runner", ID("s1"))
	af := f.rpc.Insert(ID("s1"), ActionID("a1"), json.RawMessage(`{}`))

	err := f.Cancel(context.Background(), "h1", "action_runner", ActionID("a1"))
	require.NoError(t, err)

	res := <-af.done
	require.NoError(t, res.Err)
	assert.JSONEq(t, `null`, string(res.Value))
	assert.False(t, f.rpc.Has(ID("s1"), "a1"))
	assert.Len(t, transport.snapshot(), 1)
}

func TestDataWithMismatchedSessionTerminatesHeldSession(t *testing.T) {
	f := newTestFabric(&fakeTransport{})
	f.SessionCreate(context.Background(), "h1", "action_runner", ID("s1"))
	af := f.rpc.Insert(ID("s1"), ActionID("a1"), json.RawMessage(`{}`))

	require.NoError(t, f.Data("h1", "action_runner", ID("s-unknown"), json.RawMessage(`{}`)))

	res := <-af.done
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "session terminated")

	_, ok := f.sessions.Current("h1", "action_runner")
	assert.False(t, ok)
}
