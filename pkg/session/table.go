// Package session implements the action-runner RPC fabric (spec.md section
// 4.4): the session table that tracks the current session id per
// (host, plugin), the rpc table that tracks actions in flight per session,
// and the Fabric that ties both to an agent transport.
//
// Grounded directly on original_source/iml-services/src/services/
// action_runner/sender.rs and the "two independently owned maps" design
// note in spec.md section 9: the session table and the rpc table are
// guarded by separate mutexes and neither is held locked while touching
// the other.
package session

import (
	"context"
	"sync"
)

// ID is an opaque session identifier minted by an agent on connect.
type ID string

type hostPlugin struct {
	host, plugin string
}

// Table tracks the current session id for each (host, plugin) pair and
// lets callers await one coming into existence. Read-heavy lookups use a
// RWMutex per spec.md section 5 ("read-heavy paths may use read/write
// separation").
type Table struct {
	mu      sync.RWMutex
	current map[hostPlugin]ID
	waiters map[hostPlugin]chan struct{}
}

// NewTable constructs an empty session table.
func NewTable() *Table {
	return &Table{
		current: make(map[hostPlugin]ID),
		waiters: make(map[hostPlugin]chan struct{}),
	}
}

// Current returns the session id currently recorded for (host, plugin).
func (t *Table) Current(host, plugin string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.current[hostPlugin{host, plugin}]
	return id, ok
}

// Set records id as current for (host, plugin) and wakes any Await
// callers blocked on that key. It returns the previous id, if any, so the
// caller can decide whether to re-dispatch actions in flight under it.
func (t *Table) Set(host, plugin string, id ID) (previous ID, hadPrevious bool) {
	key := hostPlugin{host, plugin}

	t.mu.Lock()
	previous, hadPrevious = t.current[key]
	t.current[key] = id
	waiter := t.waiters[key]
	delete(t.waiters, key)
	t.mu.Unlock()

	if waiter != nil {
		close(waiter)
	}
	return previous, hadPrevious
}

// Clear removes the current session for (host, plugin), but only if it
// still matches id — a stale Clear from a superseded session must not
// remove a newer one.
func (t *Table) Clear(host, plugin string, id ID) bool {
	key := hostPlugin{host, plugin}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current[key] != id {
		return false
	}
	delete(t.current, key)
	return true
}

// Await blocks until a session exists for (host, plugin) or ctx is done.
func (t *Table) Await(ctx context.Context, host, plugin string) (ID, error) {
	key := hostPlugin{host, plugin}

	for {
		t.mu.Lock()
		if id, ok := t.current[key]; ok {
			t.mu.Unlock()
			return id, nil
		}
		waiter, ok := t.waiters[key]
		if !ok {
			waiter = make(chan struct{})
			t.waiters[key] = waiter
		}
		t.mu.Unlock()

		select {
		case <-waiter:
			// A session arrived (or another waiter's wake fired); loop to
			// re-check current under lock.
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
