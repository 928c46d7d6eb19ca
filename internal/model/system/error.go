/**
 * 模型:错误定义
 * @author: sun977
 * @date: 2025.11.08
 * @description: 系统错误常量定义
 * @func: 核心各层共享的哨兵错误
 */
package system

import "errors"

// 客户端相关错误
var (
	ErrClientNotFound = errors.New("客户端不存在")
)

// 任务相关错误
var (
	ErrTaskNotFound      = errors.New("任务不存在")
	ErrInvalidTransition = errors.New("非法的任务状态流转")
	ErrResultNotFound    = errors.New("聚合结果不存在")
)

// 认证相关错误
var (
	ErrMissingCredentials = errors.New("缺少client_id或api_key")
	ErrInvalidAPIKey      = errors.New("API密钥无效")
)

// 存储相关错误
var (
	ErrStoreUnavailable = errors.New("持久化存储不可用")
)
