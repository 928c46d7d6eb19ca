/**
 * 模型:任务输出模型
 * @author: sun977
 * @date: 2025.11.08
 * @description: 流式输出分片与聚合结果实体定义
 * @func: 定义 OutputChunk、AggregatedOutput 实体
 */
package hub

import "time"

// OutputChunk 单个流式输出分片
// 序列号由聚合缓冲区按任务单调分配(从0开始)，与到达时间戳无关
type OutputChunk struct {
	TaskID    string    `json:"task_id" bson:"task_id"`     // 所属任务ID
	ClientID  string    `json:"client_id" bson:"client_id"` // 来源客户端ID
	MsgID     string    `json:"msg_id" bson:"msg_id"`       // 消息ID(发送方未提供时由服务端生成)
	Seq       int       `json:"seq" bson:"seq"`             // 分片序列号(按任务单调递增)
	Output    string    `json:"output" bson:"output"`       // 原始输出文本
	Timestamp time.Time `json:"timestamp" bson:"timestamp"` // 分片时间戳
}

// AggregatedOutput 任务聚合输出
// 任务首次进入终止状态时创建一次，之后不再重算或覆盖
type AggregatedOutput struct {
	TaskID         string     `json:"task_id" bson:"task_id"`                 // 任务ID(唯一)
	ClientID       string     `json:"client_id" bson:"client_id"`             // 客户端ID
	CombinedOutput string     `json:"combined_output" bson:"combined_output"` // 按序列号拼接的全部输出
	TotalChunks    int        `json:"total_chunks" bson:"total_chunks"`       // 分片总数
	TotalBytes     int        `json:"total_bytes" bson:"total_bytes"`         // 输出字节数
	Status         TaskStatus `json:"status" bson:"status"`                   // 终止状态(completed/failed)
	ExitCode       int        `json:"exit_code" bson:"exit_code"`             // 退出码
	CompletedAt    time.Time  `json:"completed_at" bson:"completed_at"`       // 聚合时间
}
