/**
 * 仓库层:聚合结果数据访问
 * @author: sun977
 * @date: 2025.11.09
 * @description: 任务聚合输出的一次性写入与查询
 * @func: InsertAggregatedOutput、GetAggregatedOutput、GetClientResults
 */
package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
)

// InsertAggregatedOutput 写入任务聚合结果
// 每个任务只写入一次；唯一索引冲突说明结果已存在，按幂等处理不覆盖
func (m *Manager) InsertAggregatedOutput(result *hubModel.AggregatedOutput) error {
	if !m.IsConnected() {
		return system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	if _, err := m.results.InsertOne(ctx, result); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert aggregated output for task %s: %w", result.TaskID, err)
	}
	return nil
}

// GetAggregatedOutput 按任务ID查询聚合结果
// 未找到返回 system.ErrResultNotFound(任务未完成时属正常情况)
func (m *Manager) GetAggregatedOutput(taskID string) (*hubModel.AggregatedOutput, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	var result hubModel.AggregatedOutput
	err := m.results.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, system.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregated output for task %s: %w", taskID, err)
	}
	return &result, nil
}

// GetClientResults 查询指定客户端全部已完成任务的聚合结果(按完成时间倒序)
func (m *Manager) GetClientResults(clientID string) ([]*hubModel.AggregatedOutput, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	cursor, err := m.results.Find(ctx, bson.M{"client_id": clientID},
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get results for client %s: %w", clientID, err)
	}
	defer cursor.Close(ctx)

	var results []*hubModel.AggregatedOutput
	for cursor.Next(ctx) {
		var result hubModel.AggregatedOutput
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode result doc: %w", err)
		}
		results = append(results, &result)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}
