/**
 * 仓库层:MongoDB连接管理
 * @author: sun977
 * @date: 2025.11.09
 * @description: MongoDB连接与可达性管理，连接失败降级不致命
 * @func: NewManager、IsConnected、索引初始化、Close
 */
package mongo

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"neohub/internal/config"
	"neohub/internal/pkg/logger"
)

// Manager MongoDB连接管理器
// 连接失败时connected置为false，各操作直接返回存储不可用错误，由调用方走内存降级路径
type Manager struct {
	cfg     *config.MongoConfig
	client  *mongo.Client
	db      *mongo.Database
	clients *mongo.Collection // 客户端集合
	tasks   *mongo.Collection // 任务集合
	logs    *mongo.Collection // 客户端日志集合(输出分片+业务事件)
	results *mongo.Collection // 聚合结果集合
	apiKeys *mongo.Collection // API密钥集合

	mu        sync.Mutex
	connected bool
}

// NewManager 创建MongoDB连接管理器
// 连接失败只记录错误，不阻止进程启动(持久化不可用时核心走内存降级)
func NewManager(cfg *config.MongoConfig) *Manager {
	m := &Manager{cfg: cfg}
	m.connect()
	m.setupIndexes()
	return m
}

// connect 建立MongoDB连接
func (m *Manager) connect() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(m.cfg.URI).
		SetServerSelectionTimeout(m.cfg.ConnectTimeout).
		SetConnectTimeout(m.cfg.ConnectTimeout).
		SetSocketTimeout(m.cfg.OperationTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Errorf("Failed to connect to MongoDB: %v", err)
		return
	}

	// 验证连接
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Errorf("Failed to ping MongoDB at %s: %v", m.cfg.URI, err)
		_ = client.Disconnect(context.Background())
		return
	}

	m.client = client
	m.db = client.Database(m.cfg.Database)
	m.clients = m.db.Collection(m.cfg.ClientsCollection)
	m.tasks = m.db.Collection(m.cfg.TasksCollection)
	m.logs = m.db.Collection(m.cfg.LogsCollection)
	m.results = m.db.Collection(m.cfg.ResultsCollection)
	m.apiKeys = m.db.Collection(m.cfg.APIKeysCollection)

	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()

	logger.Infof("Connected to MongoDB at %s", m.cfg.URI)
}

// setupIndexes 创建必要的索引
func (m *Manager) setupIndexes() {
	if !m.IsConnected() {
		return
	}

	ctx, cancel := m.opContext()
	defer cancel()

	unique := options.Index().SetUnique(true)

	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{m.clients, []mongo.IndexModel{
			{Keys: bson.D{{Key: "client_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "last_seen", Value: -1}}},
		}},
		{m.tasks, []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "target", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{m.logs, []mongo.IndexModel{
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "seq", Value: 1}}},
		}},
		{m.results, []mongo.IndexModel{
			{Keys: bson.D{{Key: "task_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
		}},
		{m.apiKeys, []mongo.IndexModel{
			{Keys: bson.D{{Key: "api_key", Value: 1}}, Options: unique},
		}},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			logger.Errorf("Failed to create indexes for %s: %v", idx.coll.Name(), err)
		}
	}

	logger.Info("MongoDB indexes created successfully")
}

// IsConnected 检查MongoDB连接是否可用
// 通过ping做显式可达性检查，失败后降级标记为未连接
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	connected := m.connected
	m.mu.Unlock()

	if !connected || m.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.OperationTimeout)
	defer cancel()

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		m.mu.Lock()
		m.connected = false
		m.mu.Unlock()
		return false
	}
	return true
}

// opContext 构造单次操作的超时上下文
func (m *Manager) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.cfg.OperationTimeout)
}

// Close 关闭MongoDB连接
func (m *Manager) Close() error {
	if m.client == nil {
		return nil
	}

	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return err
	}
	logger.Info("MongoDB connection closed")
	return nil
}
