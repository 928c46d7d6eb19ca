/**
 * 服务层:API密钥认证
 * @author: sun977
 * @date: 2025.11.09
 * @description: Agent注册凭据校验，存储校验优先，配置静态密钥兜底
 * @func: NewAuthService、ValidateAPIKey、GetUserByAPIKey
 */
package hub

import (
	"neohub/internal/config"
	hubModel "neohub/internal/model/hub"
	"neohub/internal/pkg/logger"
)

// AuthManager 认证能力接口
type AuthManager interface {
	// ValidateAPIKey 校验API密钥是否有效
	ValidateAPIKey(apiKey string) bool
	// GetUserByAPIKey 查询密钥关联的用户信息(未关联或无法查询时返回nil)
	GetUserByAPIKey(apiKey string) *hubModel.APIKeyUser
}

// authService AuthManager 的默认实现
// 存储可达时查密钥集合；不可达或未命中时回退到配置中的静态密钥，
// 保证存储故障期间已知Agent仍能重连注册
type authService struct {
	store      Store
	staticKeys map[string]struct{}
}

// NewAuthService 创建认证服务
func NewAuthService(store Store, authCfg *config.AuthConfig) AuthManager {
	staticKeys := make(map[string]struct{}, len(authCfg.StaticAPIKeys))
	for _, key := range authCfg.StaticAPIKeys {
		if key != "" {
			staticKeys[key] = struct{}{}
		}
	}
	return &authService{store: store, staticKeys: staticKeys}
}

// ValidateAPIKey 校验API密钥是否有效
func (s *authService) ValidateAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	valid, err := s.store.ValidateAPIKey(apiKey)
	if err == nil && valid {
		return true
	}
	if err != nil {
		logger.LogError(err, "auth", "validate_api_key", nil)
	}

	_, ok := s.staticKeys[apiKey]
	return ok
}

// GetUserByAPIKey 查询密钥关联的用户信息
// 静态密钥没有关联用户，返回nil
func (s *authService) GetUserByAPIKey(apiKey string) *hubModel.APIKeyUser {
	user, err := s.store.GetUserByAPIKey(apiKey)
	if err != nil {
		return nil
	}
	return user
}
