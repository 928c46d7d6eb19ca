package hub

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hubModel "neohub/internal/model/hub"
)

func TestOutputBufferSequenceMonotonic(t *testing.T) {
	store := newFakeStore()
	buffer := NewOutputBuffer(store)
	buffer.OnTaskCreated("task-1", "agent-1")

	// 1. Sequence numbers start at 0 and increase by 1 per chunk
	for i := 0; i < 5; i++ {
		seq := buffer.AppendChunk("task-1", "agent-1", fmt.Sprintf("msg-%d", i), "x", time.Now())
		assert.Equal(t, i, seq)
	}

	// 2. A second task gets its own independent sequence
	buffer.OnTaskCreated("task-2", "agent-1")
	assert.Equal(t, 0, buffer.AppendChunk("task-2", "agent-1", "msg-a", "y", time.Now()))
}

func TestOutputBufferPersistFailureDoesNotBlock(t *testing.T) {
	store := newFakeStore()
	store.chunkErr = errors.New("write failed")
	buffer := NewOutputBuffer(store)
	buffer.OnTaskCreated("task-1", "agent-1")

	// 1. Chunk persistence failure still assigns sequence numbers
	assert.Equal(t, 0, buffer.AppendChunk("task-1", "agent-1", "m1", "hello ", time.Now()))
	assert.Equal(t, 1, buffer.AppendChunk("task-1", "agent-1", "m2", "world", time.Now()))

	// 2. Aggregation still sees the in-memory chunks
	result, done := buffer.Finalize("task-1", "agent-1", hubModel.TaskStatusCompleted, 0)
	require.True(t, done)
	assert.Equal(t, "hello world", result.CombinedOutput)
	assert.Equal(t, 2, result.TotalChunks)
}

func TestOutputBufferFinalizeOrdersBySequence(t *testing.T) {
	store := newFakeStore()
	buffer := NewOutputBuffer(store)
	buffer.OnTaskCreated("task-1", "agent-1")

	// Sequence numbers reflect arrival order, timestamps do not matter
	base := time.Now()
	buffer.AppendChunk("task-1", "agent-1", "m1", "first ", base.Add(10*time.Second))
	buffer.AppendChunk("task-1", "agent-1", "m2", "second ", base.Add(-5*time.Second))
	buffer.AppendChunk("task-1", "agent-1", "m3", "third", base)

	result, done := buffer.Finalize("task-1", "agent-1", hubModel.TaskStatusFailed, 2)
	require.True(t, done)
	assert.Equal(t, "first second third", result.CombinedOutput)
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, len("first second third"), result.TotalBytes)
	assert.Equal(t, hubModel.TaskStatusFailed, result.Status)
	assert.Equal(t, 2, result.ExitCode)
}

func TestOutputBufferFinalizeAtMostOnce(t *testing.T) {
	store := newFakeStore()
	buffer := NewOutputBuffer(store)
	buffer.OnTaskCreated("task-1", "agent-1")
	buffer.AppendChunk("task-1", "agent-1", "m1", "out", time.Now())

	// 1. First finalize aggregates and persists
	result, done := buffer.Finalize("task-1", "agent-1", hubModel.TaskStatusCompleted, 0)
	require.True(t, done)
	require.NotNil(t, result)
	assert.Equal(t, 1, store.insertResultCalls())

	// 2. Second finalize is an idempotent no-op without another persist call
	result, done = buffer.Finalize("task-1", "agent-1", hubModel.TaskStatusFailed, 1)
	assert.False(t, done)
	assert.Nil(t, result)
	assert.Equal(t, 1, store.insertResultCalls())

	// 3. The stored result keeps the first terminal status
	stored, err := store.GetAggregatedOutput("task-1")
	require.NoError(t, err)
	assert.Equal(t, hubModel.TaskStatusCompleted, stored.Status)
}

func TestOutputBufferFinalizeReplaysFromStore(t *testing.T) {
	store := newFakeStore()

	// Chunks were persisted before the buffer entry was lost (process restart)
	for i, text := range []string{"a", "b", "c"} {
		require.NoError(t, store.InsertOutputChunk(&hubModel.OutputChunk{
			TaskID:   "task-1",
			ClientID: "agent-1",
			Seq:      i,
			Output:   text,
		}))
	}

	buffer := NewOutputBuffer(store)
	result, done := buffer.Finalize("task-1", "agent-1", hubModel.TaskStatusCompleted, 0)
	require.True(t, done)
	assert.Equal(t, "abc", result.CombinedOutput)
	assert.Equal(t, 3, result.TotalChunks)
}

func TestOutputBufferFinalizeZeroChunks(t *testing.T) {
	store := newFakeStore()
	store.setConnected(false)
	buffer := NewOutputBuffer(store)

	// No buffer entry and no reachable store still yields a terminal record
	result, done := buffer.Finalize("task-1", "agent-1", hubModel.TaskStatusFailed, 9)
	require.True(t, done)
	assert.Equal(t, "", result.CombinedOutput)
	assert.Equal(t, 0, result.TotalChunks)
	assert.Equal(t, 9, result.ExitCode)
}

func TestOutputBufferChunksAfter(t *testing.T) {
	store := newFakeStore()
	buffer := NewOutputBuffer(store)
	buffer.OnTaskCreated("task-1", "agent-1")
	for i := 0; i < 4; i++ {
		buffer.AppendChunk("task-1", "agent-1", fmt.Sprintf("m%d", i), "x", time.Now())
	}

	// 1. Cursor filters by sequence number
	chunks := buffer.ChunksAfter("task-1", 1)
	require.Len(t, chunks, 2)
	assert.Equal(t, 2, chunks[0].Seq)
	assert.Equal(t, 3, chunks[1].Seq)

	// 2. Unknown task returns nil so callers can fall back to the store
	assert.Nil(t, buffer.ChunksAfter("missing", -1))
}
