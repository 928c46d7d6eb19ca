/**
 * 服务层:持久化存储接口
 * @author: sun977
 * @date: 2025.11.09
 * @description: 服务层依赖的存储能力抽象，由 repo/mongo.Manager 实现
 * @func: 定义 Store 接口
 */
package hub

import (
	hubModel "neohub/internal/model/hub"
)

// Store 持久化存储接口
// 所有方法在存储不可达时返回 system.ErrStoreUnavailable，
// 调用方据此降级到内存缓存，存储恢复后自动回到持久化路径
type Store interface {
	// IsConnected 存储当前是否可达
	IsConnected() bool

	// 客户端
	UpsertClient(clientID string, identity []byte, hostname string) error
	GetClientByID(clientID string) ([]byte, error)
	GetAllClients() ([]*hubModel.Client, error)
	CountClients() (int64, error)

	// 任务
	InsertTask(task *hubModel.Task) error
	UpdateTaskStatus(taskID string, status hubModel.TaskStatus, update hubModel.TaskStatusUpdate) error
	GetTask(taskID string) (*hubModel.Task, error)
	GetAllTasks(limit int64) ([]*hubModel.Task, error)
	CountTasks() (int64, error)

	// 输出分片与事件日志
	InsertOutputChunk(chunk *hubModel.OutputChunk) error
	InsertClientEvent(clientID, eventType string, details map[string]any, taskID string) error
	GetClientLogs(clientID string, limit int64) ([]*hubModel.ClientLogEntry, error)
	GetTaskChunks(taskID string) ([]*hubModel.OutputChunk, error)
	GetTaskChunksAfter(taskID string, afterSeq int) ([]*hubModel.OutputChunk, error)

	// 聚合结果
	InsertAggregatedOutput(result *hubModel.AggregatedOutput) error
	GetAggregatedOutput(taskID string) (*hubModel.AggregatedOutput, error)
	GetClientResults(clientID string) ([]*hubModel.AggregatedOutput, error)

	// API密钥
	ValidateAPIKey(apiKey string) (bool, error)
	GetUserByAPIKey(apiKey string) (*hubModel.APIKeyUser, error)
}
