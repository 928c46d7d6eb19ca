/**
 * 仓库层:API密钥数据访问
 * @author: sun977
 * @date: 2025.11.09
 * @description: API密钥的校验与用户信息查询(密钥签发不在本系统范围)
 * @func: ValidateAPIKey、GetUserByAPIKey
 */
package mongo

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
)

// ValidateAPIKey 校验API密钥是否有效
// 仅匹配active=true的密钥，命中时刷新last_used时间戳
func (m *Manager) ValidateAPIKey(apiKey string) (bool, error) {
	if !m.IsConnected() {
		return false, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	filter := bson.M{"api_key": apiKey, "active": true}

	count, err := m.apiKeys.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to validate api key: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	// 刷新最近使用时间，失败不影响校验结果
	if _, err := m.apiKeys.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"last_used": time.Now().UTC()}}); err != nil {
		return true, nil
	}
	return true, nil
}

// GetUserByAPIKey 按API密钥查询用户信息
// 未找到返回nil(不作为错误)
func (m *Manager) GetUserByAPIKey(apiKey string) (*hubModel.APIKeyUser, error) {
	if !m.IsConnected() {
		return nil, system.ErrStoreUnavailable
	}

	ctx, cancel := m.opContext()
	defer cancel()

	var user hubModel.APIKeyUser
	err := m.apiKeys.FindOne(ctx, bson.M{"api_key": apiKey, "active": true}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by api key: %w", err)
	}
	return &user, nil
}
