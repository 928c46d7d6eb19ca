/**
 * 服务层:实时输出流
 * @author: sun977
 * @date: 2025.11.09
 * @description: 按序列号游标轮询任务输出分片，任务终止后发送完成标记并结束
 * @func: NewTailService、Tail
 */
package hub

import (
	"context"
	"errors"
	"time"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
	"neohub/internal/pkg/logger"
)

// TailEvent 实时输出流事件
// Chunk非nil时为一个输出分片；Done为true时流结束，携带终止状态
type TailEvent struct {
	Chunk    *hubModel.OutputChunk // 输出分片(分片事件)
	Done     bool                  // 流结束标记
	Status   hubModel.TaskStatus   // 终止状态(Done时有效)
	ExitCode *int                  // 退出码(Done时有效，任务记录缺失则为nil)
}

// TailService 实时输出流服务
// 不维护订阅推送通道，以最后可见序列号为游标定期轮询，
// 聚合前读缓冲区，聚合后或进程重启后读存储
type TailService struct {
	tasks    *TaskRegistry
	buffer   *OutputBuffer
	store    Store
	interval time.Duration
}

// NewTailService 创建实时输出流服务
func NewTailService(tasks *TaskRegistry, buffer *OutputBuffer, store Store, interval time.Duration) *TailService {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &TailService{
		tasks:    tasks,
		buffer:   buffer,
		store:    store,
		interval: interval,
	}
}

// Tail 持续输出指定任务的分片直到任务终止或ctx取消
// 每轮先发出游标之后的新分片，再检查任务状态；
// 终止时补发最后一轮可见分片后发送Done事件并关闭通道
func (t *TailService) Tail(ctx context.Context, taskID string) <-chan TailEvent {
	events := make(chan TailEvent, 16)

	go func() {
		defer close(events)

		cursor := -1
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			cursor = t.emitNewChunks(ctx, taskID, cursor, events)

			task, err := t.tasks.Get(taskID)
			if err != nil && !errors.Is(err, system.ErrTaskNotFound) {
				logger.LogError(err, "tail", "get_task", map[string]any{"task_id": taskID})
			}
			if task != nil && task.Status.IsTerminal() {
				// 终止判定和分片读取之间可能又到了分片，补读一轮再收尾
				cursor = t.emitNewChunks(ctx, taskID, cursor, events)
				select {
				case events <- TailEvent{Done: true, Status: task.Status, ExitCode: task.ExitCode}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return events
}

// emitNewChunks 发出游标之后的新分片，返回推进后的游标
func (t *TailService) emitNewChunks(ctx context.Context, taskID string, cursor int, events chan<- TailEvent) int {
	chunks := t.buffer.ChunksAfter(taskID, cursor)
	if chunks == nil {
		// 缓冲区无条目(已聚合或进程重启)，降级读存储
		stored, err := t.store.GetTaskChunksAfter(taskID, cursor)
		if err != nil && !errors.Is(err, system.ErrStoreUnavailable) {
			logger.LogError(err, "tail", "get_chunks", map[string]any{"task_id": taskID})
		}
		chunks = stored
	}

	for _, chunk := range chunks {
		select {
		case events <- TailEvent{Chunk: chunk}:
			if chunk.Seq > cursor {
				cursor = chunk.Seq
			}
		case <-ctx.Done():
			return cursor
		}
	}
	return cursor
}
