/**
 * 模型:客户端核心模型
 * @author: sun977
 * @date: 2025.11.08
 * @description: 已注册Agent客户端的实体定义
 * @func: 定义 Client、APIKeyUser 实体
 */
package hub

import "time"

// Client 已注册的Agent客户端
// Identity 是传输层路由地址(ROUTER socket分配)，重连后会变化
// ClientID 是Agent自选的逻辑名称，跨重连保持稳定，二者映射以最新注册为准
type Client struct {
	Identity []byte    `json:"-" bson:"-"`                         // 传输层连接标识(原始字节，仅内存持有)
	ClientID string    `json:"client_id" bson:"client_id"`         // 客户端逻辑ID(唯一)
	Hostname string    `json:"hostname,omitempty" bson:"hostname"` // 主机名(可选)
	LastSeen time.Time `json:"last_seen" bson:"last_seen"`         // 最后一次注册时间
}

// APIKeyUser API密钥关联的用户信息
type APIKeyUser struct {
	UserID string `bson:"user_id" json:"user_id"` // 用户ID
	Email  string `bson:"email" json:"email"`     // 用户邮箱
	Name   string `bson:"name" json:"name"`       // 用户名
}

// Clone 返回客户端的浅拷贝
func (c *Client) Clone() *Client {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}
