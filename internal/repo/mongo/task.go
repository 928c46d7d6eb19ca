/**
 * 仓库层:任务数据访问
 * @author: sun977
 * @date: 2025.11.09
 * @description: 任务文档的插入、状态更新与查询
 * @func: InsertTask、UpdateTaskStatus、GetTask、GetAllTasks
 */
package mongo

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
)

// InsertTask 插入一条新任务(status=queued)
func (m *Manager) InsertTask(task *hubModel.Task) error {
	if !m.IsConnected() {
		return system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	if _, err := m.tasks.InsertOne(ctx, task); err != nil {
		// 唯一索引冲突按幂等处理(任务ID不会复用，重复写入视为同一条)
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}
	return nil
}

// UpdateTaskStatus 更新任务状态及附加字段
func (m *Manager) UpdateTaskStatus(taskID string, status hubModel.TaskStatus, update hubModel.TaskStatusUpdate) error {
	if !m.IsConnected() {
		return system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if update.StartedAt != nil {
		set["started_at"] = *update.StartedAt
	}
	if update.CompletedAt != nil {
		set["completed_at"] = *update.CompletedAt
	}
	if update.ExitCode != nil {
		set["exit_code"] = *update.ExitCode
	}

	if _, err := m.tasks.UpdateOne(ctx, bson.M{"id": taskID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	return nil
}

// GetTask 按任务ID查询
// 未找到返回 system.ErrTaskNotFound
func (m *Manager) GetTask(taskID string) (*hubModel.Task, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	var task hubModel.Task
	err := m.tasks.FindOne(ctx, bson.M{"id": taskID}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, system.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return &task, nil
}

// GetAllTasks 查询任务列表(按创建时间倒序，最新在前)
func (m *Manager) GetAllTasks(limit int64) ([]*hubModel.Task, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	cursor, err := m.tasks.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*hubModel.Task
	for cursor.Next(ctx) {
		var task hubModel.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, fmt.Errorf("failed to decode task doc: %w", err)
		}
		tasks = append(tasks, &task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks 统计任务数量
func (m *Manager) CountTasks() (int64, error) {
	if !m.IsConnected() {
		return 0, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	return m.tasks.CountDocuments(ctx, bson.M{})
}
