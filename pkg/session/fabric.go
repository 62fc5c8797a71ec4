package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lustrefs/manager/pkg/agentwire"
	"github.com/lustrefs/manager/pkg/cperrors"
	"github.com/lustrefs/manager/pkg/logger"
)

// Transport is the send-only abstraction over the agent wire (spec.md
// section 6): encoding and delivery of a Message to a given (host,
// plugin) is left to the concrete transport (message broker, direct
// connection, or a test double).
type Transport interface {
	Send(ctx context.Context, host, plugin string, msg agentwire.Message) error
}

// Fabric is the action runner: session lifecycle plus action dispatch,
// cancellation, and cancellation, exactly as specified in spec.md section
// 4.4.
type Fabric struct {
	sessions       *Table
	rpc            *RPCTable
	transport      Transport
	sessionTimeout time.Duration
	log            *logger.Logger
}

// NewFabric constructs a Fabric. sessionTimeout bounds how long Invoke
// waits for a current session to exist before returning a retryable
// error (spec.md section 4.4, default 30s via pkg/config). transport may
// be nil and set later with SetTransport, for callers (cmd/managerd)
// whose concrete transport needs the Fabric itself as its Receiver.
func NewFabric(transport Transport, sessionTimeout time.Duration, log *logger.Logger) *Fabric {
	return &Fabric{
		sessions:       NewTable(),
		rpc:            NewRPCTable(),
		transport:      transport,
		sessionTimeout: sessionTimeout,
		log:            log,
	}
}

// SetTransport assigns the transport a Fabric dispatches through. Safe to
// call once before the Fabric starts handling Invoke calls.
func (f *Fabric) SetTransport(transport Transport) {
	f.transport = transport
}

// Invoke dispatches action with args to host/plugin and suspends until
// the agent replies, the action is cancelled, or ctx is done.
func (f *Fabric) Invoke(ctx context.Context, host, plugin, action string, args interface{}) (json.RawMessage, error) {
	sessCtx, cancel := context.WithTimeout(ctx, f.sessionTimeout)
	defer cancel()

	sessionID, err := f.sessions.Await(sessCtx, host, plugin)
	if err != nil {
		return nil, cperrors.NewTransportError(true, fmt.Errorf("await session for %s/%s: %w", host, plugin, err))
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal action args: %w", err)
	}
	actionID := ActionID(uuid.NewString())

	body, err := json.Marshal(agentwire.ActionRequest{
		ActionID: string(actionID),
		Action:   action,
		Args:     argsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal action request: %w", err)
	}

	msg := agentwire.Data{SessionID: string(sessionID), FQDN: host, Plugin: plugin, Body: body}

	// The ActionInFlight is registered before the send, so a reply that
	// arrives as soon as the agent sees the request finds it. A transport
	// send failure removes it again and yields a retryable error.
	af := f.rpc.Insert(sessionID, actionID, body)
	if err := f.transport.Send(ctx, host, plugin, msg); err != nil {
		f.rpc.Remove(sessionID, actionID)
		return nil, cperrors.NewTransportError(true, fmt.Errorf("send action %s to %s: %w", action, host, err))
	}

	select {
	case res := <-af.done:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Value, nil
	case <-ctx.Done():
		f.rpc.Remove(sessionID, actionID)
		return nil, ctx.Err()
	}
}

// Cancel requests cancellation of actionID, dispatched earlier to
// host/plugin. An unknown action id is a no-op success: the action is
// assumed already complete.
func (f *Fabric) Cancel(ctx context.Context, host, plugin string, actionID ActionID) error {
	sessionID, ok := f.sessions.Current(host, plugin)
	if !ok || !f.rpc.Has(sessionID, actionID) {
		return nil
	}

	cancelArgs, err := json.Marshal(struct {
		ActionID string `json:"action_id"`
	}{ActionID: string(actionID)})
	if err != nil {
		return fmt.Errorf("marshal cancel args: %w", err)
	}
	body, err := json.Marshal(agentwire.ActionRequest{
		ActionID: uuid.NewString(),
		Action:   "action_cancel",
		Args:     cancelArgs,
	})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}
	msg := agentwire.Data{SessionID: string(sessionID), FQDN: host, Plugin: plugin, Body: body}

	if err := f.transport.Send(ctx, host, plugin, msg); err != nil {
		return cperrors.NewTransportError(true, fmt.Errorf("send cancel for %s: %w", actionID, err))
	}

	if af, ok := f.rpc.Remove(sessionID, actionID); ok {
		af.Complete(Result{Value: json.RawMessage("null")})
	}
	return nil
}

// SessionCreate records a new session id as current for (host, plugin).
// If a prior session existed, every action in flight under it is
// re-dispatched on the new session: the payload is sent afresh but the
// caller's completion channel is preserved.
func (f *Fabric) SessionCreate(ctx context.Context, host, plugin string, newSession ID) {
	previous, had := f.sessions.Set(host, plugin, newSession)
	if !had || previous == newSession {
		return
	}

	for _, af := range f.rpc.Drain(previous) {
		f.rpc.adopt(newSession, af)
		msg := agentwire.Data{SessionID: string(newSession), FQDN: host, Plugin: plugin, Body: af.Payload}
		if err := f.transport.Send(ctx, host, plugin, msg); err != nil {
			f.log.Warnw("re-dispatch on superseding session failed", "host", host, "plugin", plugin, "action_id", af.ActionID, "err", err)
		}
	}
}

// SessionTerminate removes sessionID as current for (host, plugin), if it
// still is, and fails every action in flight under it.
func (f *Fabric) SessionTerminate(host, plugin string, sessionID ID) {
	if !f.sessions.Clear(host, plugin, sessionID) {
		return
	}
	f.failInFlight(sessionID)
}

// Data delivers an inbound agent message whose body is an action reply.
// A sessionID that no longer matches the current one for (host, plugin)
// is treated as the agent having moved on: the held session (if any) is
// terminated and every action in flight under it fails, mirroring
// SessionTerminate.
func (f *Fabric) Data(host, plugin string, sessionID ID, body json.RawMessage) error {
	current, ok := f.sessions.Current(host, plugin)
	if !ok || current != sessionID {
		if ok {
			f.SessionTerminate(host, plugin, current)
		}
		return nil
	}

	reply, err := agentwire.DecodeActionReply(agentwire.Data{Body: body})
	if err != nil {
		return fmt.Errorf("decode action reply: %w", err)
	}

	af, ok := f.rpc.Remove(sessionID, ActionID(reply.ID))
	if !ok {
		return nil
	}

	if reply.IsError() {
		af.Complete(Result{Err: cperrors.NewAgentError(reply.Error)})
	} else {
		af.Complete(Result{Value: reply.Result})
	}
	return nil
}

func (f *Fabric) failInFlight(sessionID ID) {
	for _, af := range f.rpc.Drain(sessionID) {
		af.Complete(Result{Err: cperrors.ErrSessionTerminated})
	}
}
