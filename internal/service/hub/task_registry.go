/**
 * 服务层:任务注册表
 * @author: sun977
 * @date: 2025.11.09
 * @description: 任务生命周期管理，内存缓存+持久化双写，状态机单向流转
 * @func: NewTaskRegistry、Create、Transition、Get、ListAll
 */
package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
	"neohub/internal/pkg/logger"
)

// TaskRegistry 任务注册表
// 终止状态先到先得(first-write-wins)，重复终止上报记日志但不改状态、不重复聚合；
// 首次进入终止状态是触发输出聚合的唯一入口
type TaskRegistry struct {
	mu     sync.RWMutex
	cache  map[string]*hubModel.Task // taskID -> 任务(内存权威副本)
	order  []string                  // 创建顺序，内存降级列表按此倒序返回
	store  Store
	buffer *OutputBuffer
}

// NewTaskRegistry 创建任务注册表
func NewTaskRegistry(store Store, buffer *OutputBuffer) *TaskRegistry {
	return &TaskRegistry{
		cache:  make(map[string]*hubModel.Task),
		store:  store,
		buffer: buffer,
	}
}

// Create 创建一条新任务(status=queued)
// 生成任务ID，内存与存储双写，并预建输出聚合缓冲条目
func (r *TaskRegistry) Create(clientID, mode string, payload any) *hubModel.Task {
	task := &hubModel.Task{
		ID:        uuid.New().String(),
		Target:    clientID,
		Mode:      mode,
		Payload:   payload,
		Status:    hubModel.TaskStatusQueued,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.cache[task.ID] = task
	r.order = append(r.order, task.ID)
	r.mu.Unlock()

	// 存储不可达时任务仍在内存中有效，仅丢失重启后的可见性
	if err := r.store.InsertTask(task); err != nil {
		logger.LogError(err, "task_registry", "create_persist", map[string]any{
			"task_id": task.ID,
		})
	}

	r.buffer.OnTaskCreated(task.ID, clientID)

	logger.LogBusinessOperation("create_task", clientID, task.ID, "success",
		"任务已创建入队", map[string]any{"mode": mode})
	return task.Clone()
}

// Transition 推进任务状态
// 状态只能前进；首次进入终止状态时触发输出聚合，重复终止上报按幂等处理。
// 内存无记录时(进程重启)仍写存储并在终止时触发聚合(缓冲区自行回放)
func (r *TaskRegistry) Transition(taskID string, status hubModel.TaskStatus, update hubModel.TaskStatusUpdate) error {
	r.mu.Lock()
	task, cached := r.cache[taskID]

	if cached {
		if task.Status == status {
			// 重复上报，保持幂等
			r.mu.Unlock()
			logger.WithFields(logrus.Fields{
				"task_id": taskID,
				"status":  string(status),
			}).Debug("重复的任务状态上报，忽略")
			return nil
		}
		if task.Status.IsTerminal() && status.IsTerminal() {
			// 终止状态先到先得，后续不同终止上报不覆盖、不重复聚合
			from := task.Status
			r.mu.Unlock()
			logger.WithFields(logrus.Fields{
				"task_id":  taskID,
				"recorded": string(from),
				"ignored":  string(status),
			}).Info("任务已终止，忽略后续完成上报")
			return nil
		}
		if !task.Status.CanTransitionTo(status) {
			from := task.Status
			r.mu.Unlock()
			logger.WithFields(logrus.Fields{
				"task_id": taskID,
				"from":    string(from),
				"to":      string(status),
			}).Warn("非法的任务状态回退，忽略")
			return system.ErrInvalidTransition
		}
		task.Status = status
		task.UpdatedAt = time.Now().UTC()
		if update.StartedAt != nil {
			task.StartedAt = update.StartedAt
		}
		if update.CompletedAt != nil {
			task.CompletedAt = update.CompletedAt
		}
		if update.ExitCode != nil {
			task.ExitCode = update.ExitCode
		}
	}
	var clientID string
	if cached {
		clientID = task.Target
	}
	r.mu.Unlock()

	if err := r.store.UpdateTaskStatus(taskID, status, update); err != nil {
		logger.LogError(err, "task_registry", "transition_persist", map[string]any{
			"task_id": taskID,
			"status":  string(status),
		})
	}

	// 首次到达终止状态是聚合的唯一触发点
	if status.IsTerminal() {
		exitCode := 0
		if update.ExitCode != nil {
			exitCode = *update.ExitCode
		}
		r.buffer.Finalize(taskID, clientID, status, exitCode)
	}
	return nil
}

// Get 按任务ID查询
// 优先走存储(跨重启可见)，存储不可达时降级到内存缓存
func (r *TaskRegistry) Get(taskID string) (*hubModel.Task, error) {
	task, err := r.store.GetTask(taskID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, system.ErrStoreUnavailable) && !errors.Is(err, system.ErrTaskNotFound) {
		logger.LogError(err, "task_registry", "get_task", map[string]any{"task_id": taskID})
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if cached, ok := r.cache[taskID]; ok {
		return cached.Clone(), nil
	}
	return nil, system.ErrTaskNotFound
}

// ListAll 查询任务列表(最新在前)
// 优先走存储，不可达时按内存创建顺序倒序返回
func (r *TaskRegistry) ListAll(limit int64) []*hubModel.Task {
	if tasks, err := r.store.GetAllTasks(limit); err == nil {
		return tasks
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*hubModel.Task
	for i := len(r.order) - 1; i >= 0 && int64(len(tasks)) < limit; i-- {
		if task, ok := r.cache[r.order[i]]; ok {
			tasks = append(tasks, task.Clone())
		}
	}
	return tasks
}
