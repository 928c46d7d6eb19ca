/**
 * 服务层:输出聚合缓冲区
 * @author: sun977
 * @date: 2025.11.09
 * @description: 按任务累积流式输出分片，任务终止时一次性聚合落库
 * @func: NewOutputBuffer、OnTaskCreated、AppendChunk、ChunksAfter、Finalize
 */
package hub

import (
	"sort"
	"strings"
	"sync"
	"time"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/pkg/logger"
)

// bufferEntry 单个任务的分片累积状态
type bufferEntry struct {
	clientID string                  // 归属客户端ID
	chunks   []*hubModel.OutputChunk // 已累积分片(按到达顺序追加)
	nextSeq  int                     // 下一个待分配序列号
	firstAt  time.Time               // 首个分片到达时间
}

// OutputBuffer 输出聚合缓冲区
// 序列号按任务单调分配(从0开始)，聚合时按序列号排序拼接，
// 每个任务最多聚合一次(at-most-once)，重复finalize为幂等空操作
type OutputBuffer struct {
	mu        sync.Mutex
	entries   map[string]*bufferEntry // taskID -> 累积状态
	finalized map[string]bool         // 已完成聚合的任务ID
	store     Store
}

// NewOutputBuffer 创建输出聚合缓冲区
func NewOutputBuffer(store Store) *OutputBuffer {
	return &OutputBuffer{
		entries:   make(map[string]*bufferEntry),
		finalized: make(map[string]bool),
		store:     store,
	}
}

// OnTaskCreated 任务下发时预建缓冲条目
// 重复调用对已有条目不做覆盖(任务ID不会复用)
func (b *OutputBuffer) OnTaskCreated(taskID, clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[taskID]; ok {
		return
	}
	b.entries[taskID] = &bufferEntry{clientID: clientID}
}

// AppendChunk 追加一个输出分片，返回分配的序列号
// 内存追加无条件成功；逐片落库失败仅告警，不影响序列号分配和后续聚合
func (b *OutputBuffer) AppendChunk(taskID, clientID, msgID, output string, ts time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[taskID]
	if !ok {
		// 预建条目丢失时(如进程重启后收到旧任务输出)按需重建
		entry = &bufferEntry{clientID: clientID}
		b.entries[taskID] = entry
	}
	if entry.clientID == "" {
		entry.clientID = clientID
	}
	if len(entry.chunks) == 0 {
		entry.firstAt = ts
	}

	chunk := &hubModel.OutputChunk{
		TaskID:    taskID,
		ClientID:  clientID,
		MsgID:     msgID,
		Seq:       entry.nextSeq,
		Output:    output,
		Timestamp: ts,
	}
	entry.chunks = append(entry.chunks, chunk)
	entry.nextSeq++

	if err := b.store.InsertOutputChunk(chunk); err != nil {
		logger.LogError(err, "output_buffer", "append_chunk", map[string]any{
			"task_id": taskID,
			"seq":     chunk.Seq,
		})
	}
	return chunk.Seq
}

// ChunksAfter 返回指定任务中序列号大于afterSeq的分片拷贝(按序列号升序)
// 实时输出流在任务聚合前从这里读取，聚合后缓冲条目已清除返回nil
func (b *OutputBuffer) ChunksAfter(taskID string, afterSeq int) []*hubModel.OutputChunk {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[taskID]
	if !ok {
		return nil
	}

	var out []*hubModel.OutputChunk
	for _, c := range entry.chunks {
		if c.Seq > afterSeq {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Finalize 任务终止时执行一次性聚合
// 返回聚合结果及是否为本次执行；任务已聚合过时返回(nil, false)。
// 缓冲条目缺失时(进程重启)从存储回放已落库分片，回放也失败则落一条零分片结果
func (b *OutputBuffer) Finalize(taskID, clientID string, status hubModel.TaskStatus, exitCode int) (*hubModel.AggregatedOutput, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized[taskID] {
		return nil, false
	}

	var chunks []*hubModel.OutputChunk
	entry, ok := b.entries[taskID]
	if ok {
		chunks = entry.chunks
		if entry.clientID != "" {
			clientID = entry.clientID
		}
	} else {
		// 内存条目丢失，尽力从存储回放
		replayed, err := b.store.GetTaskChunks(taskID)
		if err != nil {
			logger.LogError(err, "output_buffer", "finalize_replay", map[string]any{
				"task_id": taskID,
			})
		}
		chunks = replayed
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })

	var combined strings.Builder
	for _, c := range chunks {
		combined.WriteString(c.Output)
	}

	result := &hubModel.AggregatedOutput{
		TaskID:         taskID,
		ClientID:       clientID,
		CombinedOutput: combined.String(),
		TotalChunks:    len(chunks),
		TotalBytes:     combined.Len(),
		Status:         status,
		ExitCode:       exitCode,
		CompletedAt:    time.Now().UTC(),
	}

	if err := b.store.InsertAggregatedOutput(result); err != nil {
		logger.LogError(err, "output_buffer", "finalize_persist", map[string]any{
			"task_id": taskID,
		})
	}

	delete(b.entries, taskID)
	b.finalized[taskID] = true

	logger.LogBusinessOperation("finalize_output", clientID, taskID, "success",
		"任务输出聚合完成", map[string]any{
			"total_chunks": result.TotalChunks,
			"total_bytes":  result.TotalBytes,
			"status":       string(status),
		})
	return result, true
}
