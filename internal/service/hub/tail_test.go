package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hubModel "neohub/internal/model/hub"
)

func TestTailStreamsUntilTerminal(t *testing.T) {
	store := newFakeStore()
	buffer := NewOutputBuffer(store)
	registry := NewTaskRegistry(store, buffer)
	tail := NewTailService(registry, buffer, store, 10*time.Millisecond)

	task := registry.Create("agent-1", "shell", "cmd")
	buffer.AppendChunk(task.ID, "agent-1", "m0", "early ", time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events := tail.Tail(ctx, task.ID)

	// 1. The chunk written before the stream started is delivered first
	first := <-events
	require.NotNil(t, first.Chunk)
	assert.Equal(t, 0, first.Chunk.Seq)
	assert.Equal(t, "early ", first.Chunk.Output)

	// 2. Chunks appended while streaming are picked up by the next poll
	buffer.AppendChunk(task.ID, "agent-1", "m1", "late", time.Now())
	second := <-events
	require.NotNil(t, second.Chunk)
	assert.Equal(t, 1, second.Chunk.Seq)

	// 3. A terminal transition ends the stream with a done marker
	now := time.Now().UTC()
	exitCode := 0
	require.NoError(t, registry.Transition(task.ID, hubModel.TaskStatusCompleted,
		hubModel.TaskStatusUpdate{CompletedAt: &now, ExitCode: &exitCode}))

	var done *TailEvent
	for ev := range events {
		if ev.Done {
			e := ev
			done = &e
			break
		}
	}
	require.NotNil(t, done)
	assert.Equal(t, hubModel.TaskStatusCompleted, done.Status)
	require.NotNil(t, done.ExitCode)
	assert.Equal(t, 0, *done.ExitCode)
}

func TestTailAlreadyCompletedTask(t *testing.T) {
	store := newFakeStore()
	buffer := NewOutputBuffer(store)
	registry := NewTaskRegistry(store, buffer)
	tail := NewTailService(registry, buffer, store, 10*time.Millisecond)

	task := registry.Create("agent-1", "shell", "cmd")
	buffer.AppendChunk(task.ID, "agent-1", "m0", "a", time.Now())
	buffer.AppendChunk(task.ID, "agent-1", "m1", "b", time.Now())

	now := time.Now().UTC()
	exitCode := 0
	require.NoError(t, registry.Transition(task.ID, hubModel.TaskStatusCompleted,
		hubModel.TaskStatusUpdate{CompletedAt: &now, ExitCode: &exitCode}))

	// Tailing a finished task replays persisted chunks then closes
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var chunks []string
	sawDone := false
	for ev := range tail.Tail(ctx, task.ID) {
		if ev.Done {
			sawDone = true
			break
		}
		chunks = append(chunks, ev.Chunk.Output)
	}
	assert.True(t, sawDone)
	assert.Equal(t, []string{"a", "b"}, chunks)
}

func TestTailCancellation(t *testing.T) {
	store := newFakeStore()
	buffer := NewOutputBuffer(store)
	registry := NewTaskRegistry(store, buffer)
	tail := NewTailService(registry, buffer, store, 10*time.Millisecond)

	task := registry.Create("agent-1", "shell", "cmd")

	// Cancelling the context closes the stream for a still-running task
	ctx, cancel := context.WithCancel(context.Background())
	events := tail.Tail(ctx, task.ID)
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("tail channel did not close after cancellation")
		}
	}
}
