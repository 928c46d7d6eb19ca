/**
 * 模型:任务核心模型
 * @author: sun977
 * @date: 2025.11.08
 * @description: 任务实体定义，任务状态机只允许单向流转
 * @func: 定义 Task 实体、TaskStatus 状态枚举及状态判断方法
 */
package hub

import "time"

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"    // 已入队，等待Agent领取执行
	TaskStatusRunning   TaskStatus = "running"   // Agent已上报开始执行
	TaskStatusCompleted TaskStatus = "completed" // 执行完成(exit_code == 0)
	TaskStatusFailed    TaskStatus = "failed"    // 执行失败(exit_code != 0)
)

// IsTerminal 判断状态是否为终止状态
// 终止状态只允许写入一次，重复到达按幂等处理
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// rank 状态单调序，用于禁止状态回退
func (s TaskStatus) rank() int {
	switch s {
	case TaskStatusQueued:
		return 0
	case TaskStatusRunning:
		return 1
	case TaskStatusCompleted, TaskStatusFailed:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo 判断是否允许从当前状态流转到目标状态
// 状态只能前进(queued -> running -> completed/failed)，不允许回退
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return target.rank() > s.rank()
}

// Task 任务实体
// 由调度器创建(status=queued)，之后仅通过任务注册表的状态流转接口修改
type Task struct {
	ID          string     `json:"id" bson:"id"`                             // 任务ID(UUID，全局唯一)
	Target      string     `json:"target" bson:"target"`                     // 目标客户端ID
	Mode        string     `json:"mode" bson:"mode"`                         // 执行模式(由Agent解释)
	Payload     any        `json:"payload" bson:"payload"`                   // 任务载荷(不透明JSON值，核心不解释内容)
	Status      TaskStatus `json:"status" bson:"status"`                     // 任务状态
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`             // 创建时间
	StartedAt   *time.Time `json:"started_at" bson:"started_at"`             // 开始执行时间
	CompletedAt *time.Time `json:"completed_at" bson:"completed_at"`         // 完成时间(终止状态首次写入时确定)
	ExitCode    *int       `json:"exit_code,omitempty" bson:"exit_code"`     // 退出码(仅终止状态存在)
	UpdatedAt   time.Time  `json:"updated_at,omitempty" bson:"updated_at"`   // 最后更新时间
}

// TaskStatusUpdate 状态流转的附加字段
// 为nil的字段不写入
type TaskStatusUpdate struct {
	StartedAt   *time.Time // 开始执行时间
	CompletedAt *time.Time // 完成时间
	ExitCode    *int       // 退出码
}

// Clone 返回任务的浅拷贝
// 读路径返回拷贝，避免调用方观察到被并发修改的记录
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
