/**
 * 模型:客户端日志条目
 * @author: sun977
 * @date: 2025.11.08
 * @description: 持久化到日志集合的客户端日志文档(输出分片与业务事件共用)
 * @func: 定义 ClientLogEntry 实体及日志类型常量
 */
package hub

import "time"

// 日志文档类型
const (
	LogTypeOutput = "output" // 流式输出分片文档
	LogTypeEvent  = "event"  // 业务事件文档(认证、任务完成等)
)

// 业务事件类型
const (
	EventAuthenticated = "authenticated"  // 客户端完成认证注册
	EventTaskCompleted = "task_completed" // 任务到达终止状态
)

// ClientLogEntry 客户端日志文档
// 输出分片(log_type=output)携带MsgID/Seq/Output；
// 业务事件(log_type=event)携带EventType/Details
type ClientLogEntry struct {
	ClientID  string         `json:"client_id" bson:"client_id"`                       // 客户端ID
	TaskID    string         `json:"task_id,omitempty" bson:"task_id,omitempty"`       // 关联任务ID
	LogType   string         `json:"log_type" bson:"log_type"`                         // 文档类型(output/event)
	MsgID     string         `json:"msg_id,omitempty" bson:"msg_id,omitempty"`         // 消息ID
	Seq       int            `json:"seq" bson:"seq"`                                   // 分片序列号(输出文档从0开始)
	Output    string         `json:"output,omitempty" bson:"output,omitempty"`         // 输出文本
	EventType string         `json:"event_type,omitempty" bson:"event_type,omitempty"` // 事件类型
	Details   map[string]any `json:"details,omitempty" bson:"details,omitempty"`       // 事件详情
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`                       // 时间戳
}
