/**
 * 仓库层:客户端日志数据访问
 * @author: sun977
 * @date: 2025.11.09
 * @description: 流式输出分片与业务事件文档的写入与查询
 * @func: InsertOutputChunk、InsertClientEvent、GetClientLogs、GetTaskChunks
 */
package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
)

// InsertOutputChunk 写入一条流式输出分片文档
// 分片在任务完成前就已落库，供实时读取方在聚合前查看输出
func (m *Manager) InsertOutputChunk(chunk *hubModel.OutputChunk) error {
	if !m.IsConnected() {
		return system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	entry := hubModel.ClientLogEntry{
		ClientID:  chunk.ClientID,
		TaskID:    chunk.TaskID,
		LogType:   hubModel.LogTypeOutput,
		MsgID:     chunk.MsgID,
		Seq:       chunk.Seq,
		Output:    chunk.Output,
		Timestamp: chunk.Timestamp,
	}

	if _, err := m.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to log client output: %w", err)
	}
	return nil
}

// InsertClientEvent 写入一条业务事件文档(认证、任务完成等)
func (m *Manager) InsertClientEvent(clientID, eventType string, details map[string]any, taskID string) error {
	if !m.IsConnected() {
		return system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	entry := hubModel.ClientLogEntry{
		ClientID:  clientID,
		TaskID:    taskID,
		LogType:   hubModel.LogTypeEvent,
		EventType: eventType,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	if _, err := m.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to log client event: %w", err)
	}
	return nil
}

// GetClientLogs 查询指定客户端的日志(按时间倒序，最新在前)
func (m *Manager) GetClientLogs(clientID string, limit int64) ([]*hubModel.ClientLogEntry, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	cursor, err := m.logs.Find(ctx, bson.M{"client_id": clientID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for client %s: %w", clientID, err)
	}
	defer cursor.Close(ctx)

	var entries []*hubModel.ClientLogEntry
	for cursor.Next(ctx) {
		var entry hubModel.ClientLogEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode log doc: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate logs: %w", err)
	}
	return entries, nil
}

// GetTaskChunks 查询指定任务的全部输出分片(按序列号升序)
// 也用于进程重启后finalize前的分片回放
func (m *Manager) GetTaskChunks(taskID string) ([]*hubModel.OutputChunk, error) {
	return m.GetTaskChunksAfter(taskID, -1)
}

// GetTaskChunksAfter 查询指定任务中序列号大于afterSeq的输出分片(按序列号升序)
// 实时输出流以最后可见序列号为游标调用此方法
func (m *Manager) GetTaskChunksAfter(taskID string, afterSeq int) ([]*hubModel.OutputChunk, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	filter := bson.M{
		"task_id":  taskID,
		"log_type": hubModel.LogTypeOutput,
		"seq":      bson.M{"$gt": afterSeq},
	}

	cursor, err := m.logs.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks for task %s: %w", taskID, err)
	}
	defer cursor.Close(ctx)

	var chunks []*hubModel.OutputChunk
	for cursor.Next(ctx) {
		var entry hubModel.ClientLogEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode chunk doc: %w", err)
		}
		chunks = append(chunks, &hubModel.OutputChunk{
			TaskID:    entry.TaskID,
			ClientID:  entry.ClientID,
			MsgID:     entry.MsgID,
			Seq:       entry.Seq,
			Output:    entry.Output,
			Timestamp: entry.Timestamp,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}
	return chunks, nil
}
