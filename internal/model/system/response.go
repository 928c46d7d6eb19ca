/**
 * 模型:API响应结构
 * @author: sun977
 * @date: 2025.11.08
 * @description: 统一的HTTP API响应格式
 * @func: APIResponse 结构体
 */
package system

// APIResponse 统一API响应结构
type APIResponse struct {
	Code    int    `json:"code"`              // HTTP状态码
	Status  string `json:"status"`            // success / failed
	Message string `json:"message,omitempty"` // 提示信息
	Data    any    `json:"data,omitempty"`    // 响应数据
	Error   string `json:"error,omitempty"`   // 错误详情
}
