package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAwaitReturnsImmediatelyWhenSessionExists(t *testing.T) {
	tbl := NewTable()
	tbl.Set("h1", "action_runner", ID("s1"))

	id, err := tbl.Await(context.Background(), "h1", "action_runner")
	require.NoError(t, err)
	assert.Equal(t, ID("s1"), id)
}

func TestTableAwaitWakesOnSet(t *testing.T) {
	tbl := NewTable()

	resultCh := make(chan ID, 1)
	go func() {
		id, err := tbl.Await(context.Background(), "h1", "action_runner")
		require.NoError(t, err)
		resultCh <- id
	}()

	time.Sleep(10 * time.Millisecond)
	tbl.Set("h1", "action_runner", ID("s1"))

	select {
	case id := <-resultCh:
		assert.Equal(t, ID("s1"), id)
	case <-time.After(time.Second):
		t.Fatal("Await did not wake after Set")
	}
}

func TestTableAwaitTimesOut(t *testing.T) {
	tbl := NewTable()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tbl.Await(ctx, "h1", "action_runner")
	require.Error(t, err)
}

func TestTableClearOnlyRemovesMatchingSession(t *testing.T) {
	tbl := NewTable()
	tbl.Set("h1", "action_runner", ID("s1"))

	assert.False(t, tbl.Clear("h1", "action_runner", ID("stale")))
	id, ok := tbl.Current("h1", "action_runner")
	require.True(t, ok)
	assert.Equal(t, ID("s1"), id)

	assert.True(t, tbl.Clear("h1", "action_runner", ID("s1")))
	_, ok = tbl.Current("h1", "action_runner")
	assert.False(t, ok)
}
