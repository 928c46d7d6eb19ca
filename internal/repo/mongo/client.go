/**
 * 仓库层:客户端数据访问
 * @author: sun977
 * @date: 2025.11.09
 * @description: 客户端文档的upsert与查询，连接标识以十六进制字符串落库
 * @func: UpsertClient、GetClientByID、GetAllClients
 */
package mongo

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
)

// clientDoc 客户端持久化文档
type clientDoc struct {
	ClientID    string    `bson:"client_id"`    // 客户端逻辑ID(唯一索引)
	IdentityHex string    `bson:"identity_hex"` // 连接标识(十六进制)
	Hostname    string    `bson:"hostname"`     // 主机名
	LastSeen    time.Time `bson:"last_seen"`    // 最后注册时间
	CreatedAt   time.Time `bson:"created_at"`   // 首次注册时间
	UpdatedAt   time.Time `bson:"updated_at"`   // 最后更新时间
}

// UpsertClient 插入或更新客户端信息
// 以client_id为键做upsert，连接标识重连变化时覆盖为最新值(newest wins)
func (m *Manager) UpsertClient(clientID string, identity []byte, hostname string) error {
	if !m.IsConnected() {
		return system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{
		"client_id":    clientID,
		"identity_hex": hex.EncodeToString(identity),
		"last_seen":    now,
		"updated_at":   now,
	}
	// 空主机名不覆盖已有值
	if hostname != "" {
		set["hostname"] = hostname
	}

	_, err := m.clients.UpdateOne(ctx,
		bson.M{"client_id": clientID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert client %s: %w", clientID, err)
	}
	return nil
}

// GetClientByID 按客户端ID查询连接标识
// 未找到返回 system.ErrClientNotFound
func (m *Manager) GetClientByID(clientID string) ([]byte, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	var doc clientDoc
	err := m.clients.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, system.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client %s: %w", clientID, err)
	}

	identity, err := hex.DecodeString(doc.IdentityHex)
	if err != nil {
		return nil, fmt.Errorf("corrupt identity for client %s: %w", clientID, err)
	}
	return identity, nil
}

// GetAllClients 查询全部客户端(按最后注册时间倒序)
func (m *Manager) GetAllClients() ([]*hubModel.Client, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	cursor, err := m.clients.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "last_seen", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer cursor.Close(ctx)

	var clients []*hubModel.Client
	for cursor.Next(ctx) {
		var doc clientDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode client doc: %w", err)
		}
		identity, _ := hex.DecodeString(doc.IdentityHex)
		clients = append(clients, &hubModel.Client{
			Identity: identity,
			ClientID: doc.ClientID,
			Hostname: doc.Hostname,
			LastSeen: doc.LastSeen,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

// CountClients 统计客户端数量
func (m *Manager) CountClients() (int64, error) {
	if !m.IsConnected() {
		return 0, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	return m.clients.CountDocuments(ctx, bson.M{})
}
