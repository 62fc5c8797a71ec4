// Package cperrors defines the error taxonomy shared by every layer of the
// control plane: validation/planning failures reported synchronously to a
// submitter, transport/agent/session failures surfaced from the RPC fabric,
// and persistence failures that the plan writer logs but never propagates.
package cperrors

import "fmt"

// ValidationError reports a malformed document, unknown action, or a step
// input that failed its per-variant schema. Nothing is persisted when this
// is returned.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func NewValidationError(path, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// PlanningError reports an unreachable transition or a duplicated step id.
// Same synchronous treatment as ValidationError.
type PlanningError struct {
	Message string
}

func (e *PlanningError) Error() string { return e.Message }

func NewPlanningError(format string, args ...interface{}) *PlanningError {
	return &PlanningError{Message: fmt.Sprintf(format, args...)}
}

// TransportError reports an RPC send failure or connection loss. Retryable
// distinguishes a timeout/send-failure (caller may retry) from a fabric
// shutdown.
type TransportError struct {
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (retryable=%t): %v", e.Retryable, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(retryable bool, err error) *TransportError {
	return &TransportError{Retryable: retryable, Err: err}
}

// AgentError wraps the error result an agent returned for a dispatched
// action.
type AgentError struct {
	Message string
}

func (e *AgentError) Error() string { return e.Message }

func NewAgentError(message string) *AgentError {
	return &AgentError{Message: message}
}

// SessionError reports that the session an action was in flight on was
// terminated before a new session superseded it.
type SessionError struct {
	Message string
}

func (e *SessionError) Error() string { return e.Message }

// ErrSessionTerminated is returned to every action-in-flight future when its
// session is torn down without a superseding session to re-dispatch onto.
var ErrSessionTerminated = &SessionError{Message: "communications error: session terminated"}

// PersistenceError reports a plan-write failure. Never blocks stack
// progress; the writer logs it and retries on the next change.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(err error) *PersistenceError {
	return &PersistenceError{Err: err}
}
