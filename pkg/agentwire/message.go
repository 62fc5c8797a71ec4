// Package agentwire defines the wire messages exchanged between the
// manager and an agent (spec.md section 6, "Agent transport wire messages
// (abstract)"). The protocol is a duck-typed discriminated union over
// JSON: every message carries a Kind string and the fields that variant
// needs, mirroring the original's Rust enum (original_source/iml-wire-types
// as referenced from iml-agent-comms/src/messaging.rs) without Go having
// a native tagged union to lean on.
package agentwire

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the wire message variants.
type Kind string

const (
	KindData             Kind = "DATA"
	KindSessionCreate    Kind = "SESSION_CREATE"
	KindSessionTerminate Kind = "SESSION_TERMINATE"
)

// Envelope is the JSON shape every wire message shares: a discriminator
// plus a raw payload decoded according to Kind.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Data carries an action payload or reply between manager and agent,
// manager -> agent uses SessionID/FQDN/Plugin/Body; agent -> manager
// messages are shaped identically (spec.md section 6 gives both
// directions the same field set).
type Data struct {
	SessionID string          `json:"session_id"`
	FQDN      string          `json:"fqdn"`
	Plugin    string          `json:"plugin"`
	Body      json.RawMessage `json:"body"`
}

// SessionCreate is sent by an agent to announce a new session for
// (fqdn, plugin).
type SessionCreate struct {
	FQDN      string `json:"fqdn"`
	Plugin    string `json:"plugin"`
	SessionID string `json:"session_id"`
}

// SessionTerminate is sent in either direction: manager -> agent to tear
// a session down, agent -> manager to report one has ended.
type SessionTerminate struct {
	FQDN      string `json:"fqdn"`
	Plugin    string `json:"plugin"`
	SessionID string `json:"session_id"`
}

// ActionRequest is the shape carried in Data.Body when the manager
// dispatches an action to an agent (spec.md section 6: "Action payloads
// carried in body are {action_id, action, args}").
type ActionRequest struct {
	ActionID string          `json:"action_id"`
	Action   string          `json:"action"`
	Args     json.RawMessage `json:"args"`
}

// ActionReply is the shape carried in Data.Body when an agent reports an
// action's outcome ("action replies are {id, result: Result<Value,
// Error>}"). Exactly one of Result or Error is populated.
type ActionReply struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// IsError reports whether the reply carries an Err arm.
func (r ActionReply) IsError() bool {
	return r.Error != ""
}

// Message is implemented by every decoded wire message variant.
type Message interface {
	Kind() Kind
}

func (Data) Kind() Kind             { return KindData }
func (SessionCreate) Kind() Kind    { return KindSessionCreate }
func (SessionTerminate) Kind() Kind { return KindSessionTerminate }

// Encode wraps a concrete message in its Envelope and marshals it.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("agentwire: marshal %s payload: %w", msg.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: msg.Kind(), Payload: payload})
}

// Decode dispatches an Envelope's raw payload to its concrete Go type,
// rejecting any Kind this protocol version does not know — spec.md
// section 9 calls agent payloads "duck-typed"; Decode is the one place
// that duck-typing is resolved into a concrete type.
func Decode(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("agentwire: decode envelope: %w", err)
	}

	switch env.Kind {
	case KindData:
		var m Data
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentwire: decode %s: %w", env.Kind, err)
		}
		return m, nil
	case KindSessionCreate:
		var m SessionCreate
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentwire: decode %s: %w", env.Kind, err)
		}
		return m, nil
	case KindSessionTerminate:
		var m SessionTerminate
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("agentwire: decode %s: %w", env.Kind, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("agentwire: unknown message kind %q", env.Kind)
	}
}

// DecodeActionRequest unwraps a Data message's Body as an ActionRequest.
func DecodeActionRequest(d Data) (ActionRequest, error) {
	var req ActionRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		return ActionRequest{}, fmt.Errorf("agentwire: decode action request: %w", err)
	}
	return req, nil
}

// DecodeActionReply unwraps a Data message's Body as an ActionReply.
func DecodeActionReply(d Data) (ActionReply, error) {
	var reply ActionReply
	if err := json.Unmarshal(d.Body, &reply); err != nil {
		return ActionReply{}, fmt.Errorf("agentwire: decode action reply: %w", err)
	}
	return reply, nil
}
