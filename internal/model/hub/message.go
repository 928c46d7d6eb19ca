/**
 * 模型:线上消息信封
 * @author: sun977
 * @date: 2025.11.08
 * @description: ROUTER socket 上的JSON消息信封定义(入站/出站)
 * @func: 定义消息类型常量、InboundMessage、ExecMessage、AckMessage、RejectMessage
 */
package hub

// 入站消息类型
const (
	MsgTypeHello       = "hello"        // 客户端注册(携带client_id + api_key)
	MsgTypeTaskStarted = "task_started" // 任务开始执行上报
	MsgTypeOutput      = "output"       // 流式输出分片上报
	MsgTypeCompleted   = "completed"    // 任务完成上报(携带exit_code)
)

// 出站消息类型
const (
	MsgTypeExec   = "exec"   // 下发执行命令
	MsgTypeAck    = "ack"    // 确认应答
	MsgTypeReject = "reject" // 拒绝应答(注册凭据无效)
)

// InboundMessage 入站消息信封
// 所有入站消息共用一个信封结构，按Type分发后各处理器只取自己需要的字段
type InboundMessage struct {
	Type     string `json:"type"`                // 消息类型
	ClientID string `json:"client_id,omitempty"` // 客户端ID(hello)
	APIKey   string `json:"api_key,omitempty"`   // API密钥(hello)
	Hostname string `json:"hostname,omitempty"`  // 主机名(hello，可选)
	Task     string `json:"task,omitempty"`      // 任务ID(task_started/output/completed)
	Chunk    string `json:"chunk,omitempty"`     // 输出分片文本(output)
	MsgID    string `json:"msg_id,omitempty"`    // 消息ID(output，可选)
	ExitCode *int   `json:"exit_code,omitempty"` // 退出码(completed)
	TS       string `json:"ts,omitempty"`        // ISO-8601时间戳(可选)
}

// ExecMessage 下发给客户端的执行命令信封
type ExecMessage struct {
	Type    string `json:"type"`    // 固定为 exec
	Task    string `json:"task"`    // 任务ID(UUID)
	Mode    string `json:"mode"`    // 执行模式
	Payload any    `json:"payload"` // 任务载荷
	TS      string `json:"ts"`      // 下发时间(ISO-8601)
}

// AckMessage 确认应答信封
type AckMessage struct {
	Type   string `json:"type"`           // 固定为 ack
	AckFor string `json:"ack_for"`        // 被确认对象(hello/任务ID/消息ID/completed:<task_id>/unknown)
	Task   string `json:"task,omitempty"` // 关联任务ID(output/completed应答携带)
	TS     string `json:"ts,omitempty"`   // 应答时间(ISO-8601)
}

// RejectMessage 拒绝应答信封
type RejectMessage struct {
	Type   string `json:"type"`   // 固定为 reject
	Reason string `json:"reason"` // 拒绝原因(人类可读)
}
