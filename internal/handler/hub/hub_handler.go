/**
 * 处理器层:Hub HTTP API
 * @author: sun977
 * @date: 2025.11.09
 * @description: 客户端/任务查询、任务下发与实时输出流的HTTP接口
 * @func: NewHubHandler及各gin处理函数
 */
package hub

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
	"neohub/internal/pkg/logger"
	hubService "neohub/internal/service/hub"
)

// HubHandler Hub HTTP API处理器
type HubHandler struct {
	clients    *hubService.ClientRegistry
	tasks      *hubService.TaskRegistry
	buffer     *hubService.OutputBuffer
	tail       *hubService.TailService
	dispatcher *hubService.Dispatcher
	store      hubService.Store
	logLimit   int64 // 日志查询默认条数上限
}

// NewHubHandler 创建Hub HTTP API处理器
func NewHubHandler(clients *hubService.ClientRegistry, tasks *hubService.TaskRegistry,
	buffer *hubService.OutputBuffer, tail *hubService.TailService,
	dispatcher *hubService.Dispatcher, store hubService.Store, logLimit int64) *HubHandler {
	if logLimit <= 0 {
		logLimit = 100
	}
	return &HubHandler{
		clients:    clients,
		tasks:      tasks,
		buffer:     buffer,
		tail:       tail,
		dispatcher: dispatcher,
		store:      store,
		logLimit:   logLimit,
	}
}

// ListClients 查询已注册客户端列表
// GET /api/clients
func (h *HubHandler) ListClients(c *gin.Context) {
	clients := h.clients.ListAll()
	if clients == nil {
		clients = []*hubModel.Client{}
	}
	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   gin.H{"clients": clients, "total": len(clients)},
	})
}

// ListTasks 查询任务列表(最新在前)
// GET /api/tasks
func (h *HubHandler) ListTasks(c *gin.Context) {
	tasks := h.tasks.ListAll(h.logLimit)
	if tasks == nil {
		tasks = []*hubModel.Task{}
	}
	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   gin.H{"tasks": tasks, "total": len(tasks)},
	})
}

// sendTaskRequest 任务下发请求体
type sendTaskRequest struct {
	ClientID string `json:"client_id"` // 目标客户端ID
	Mode     string `json:"mode"`      // 执行模式
	Payload  any    `json:"payload"`   // 任务载荷(不透明)
}

// SendTask 向指定客户端下发任务
// POST /api/send
func (h *HubHandler) SendTask(c *gin.Context) {
	var req sendTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, system.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "请求体不是合法JSON",
			Error:   err.Error(),
		})
		return
	}
	if req.ClientID == "" || req.Payload == nil {
		c.JSON(http.StatusBadRequest, system.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "缺少client_id或payload",
		})
		return
	}

	identity, err := h.clients.Resolve(req.ClientID)
	if err != nil {
		c.JSON(http.StatusNotFound, system.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "failed",
			Message: "客户端不存在或未注册",
			Error:   err.Error(),
		})
		return
	}

	taskID, err := h.dispatcher.SendTaskToClient(identity, req.ClientID, req.Mode, req.Payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, system.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "任务下发失败",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   gin.H{"task_id": taskID, "status": string(hubModel.TaskStatusQueued)},
	})
}

// GetTask 查询单个任务详情
// GET /api/task/:task_id
func (h *HubHandler) GetTask(c *gin.Context) {
	taskID := c.Param("task_id")
	task, err := h.tasks.Get(taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, system.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "failed",
			Message: "任务不存在",
		})
		return
	}
	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   task,
	})
}

// ClientLogs 查询指定客户端的日志文档
// GET /api/client/:client_id/logs?limit=
func (h *HubHandler) ClientLogs(c *gin.Context) {
	clientID := c.Param("client_id")

	limit := h.logLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.store.GetClientLogs(clientID, limit)
	if err != nil {
		// 存储不可达时降级为空列表，不向调用方扩散失败
		if !errors.Is(err, system.ErrStoreUnavailable) {
			h.storeError(c, err)
			return
		}
		logger.LogError(err, "hub_handler", "client_logs", map[string]any{"client_id": clientID})
		entries = nil
	}
	if entries == nil {
		entries = []*hubModel.ClientLogEntry{}
	}
	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   gin.H{"client_id": clientID, "logs": entries, "total": len(entries)},
	})
}

// TaskChunks 查询指定任务的输出分片(按序列号升序)
// GET /api/task/:task_id/chunks
// 任务未完成时优先读聚合缓冲区，完成后读存储
func (h *HubHandler) TaskChunks(c *gin.Context) {
	taskID := c.Param("task_id")

	chunks := h.buffer.ChunksAfter(taskID, -1)
	if chunks == nil {
		stored, err := h.store.GetTaskChunks(taskID)
		if err != nil && !errors.Is(err, system.ErrStoreUnavailable) {
			h.storeError(c, err)
			return
		}
		chunks = stored
	}
	if chunks == nil {
		chunks = []*hubModel.OutputChunk{}
	}
	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   gin.H{"task_id": taskID, "chunks": chunks, "total": len(chunks)},
	})
}

// TaskResult 查询任务聚合结果
// GET /api/task/:task_id/result
// 任务尚未终止时返回404(属正常情况，非错误)
func (h *HubHandler) TaskResult(c *gin.Context) {
	taskID := c.Param("task_id")

	result, err := h.store.GetAggregatedOutput(taskID)
	if err != nil {
		// 存储不可达与结果缺失同样返回404，避免把存储故障扩散给调用方
		if errors.Is(err, system.ErrStoreUnavailable) {
			logger.LogError(err, "hub_handler", "task_result", map[string]any{"task_id": taskID})
		} else if !errors.Is(err, system.ErrResultNotFound) {
			h.storeError(c, err)
			return
		}
		c.JSON(http.StatusNotFound, system.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "failed",
			Message: "聚合结果不存在(任务可能尚未完成)",
		})
		return
	}
	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   result,
	})
}

// ClientResults 查询指定客户端全部已完成任务的聚合结果
// GET /api/client/:client_id/results
func (h *HubHandler) ClientResults(c *gin.Context) {
	clientID := c.Param("client_id")

	results, err := h.store.GetClientResults(clientID)
	if err != nil {
		// 存储不可达时降级为空列表，不向调用方扩散失败
		if !errors.Is(err, system.ErrStoreUnavailable) {
			h.storeError(c, err)
			return
		}
		logger.LogError(err, "hub_handler", "client_results", map[string]any{"client_id": clientID})
		results = nil
	}
	if results == nil {
		results = []*hubModel.AggregatedOutput{}
	}
	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   gin.H{"client_id": clientID, "results": results, "total": len(results)},
	})
}

// StreamTask 实时输出流(SSE)
// GET /api/task/:task_id/stream
// 每个新分片一个chunk事件，任务终止时发送done事件后关闭连接
func (h *HubHandler) StreamTask(c *gin.Context) {
	taskID := c.Param("task_id")

	if _, err := h.tasks.Get(taskID); err != nil {
		c.JSON(http.StatusNotFound, system.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "failed",
			Message: "任务不存在",
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events := h.tail.Tail(c.Request.Context(), taskID)
	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		if event.Done {
			payload := gin.H{"status": string(event.Status)}
			if event.ExitCode != nil {
				payload["exit_code"] = *event.ExitCode
			}
			c.SSEvent("done", payload)
			return false
		}
		data, err := json.Marshal(event.Chunk)
		if err != nil {
			logger.LogError(err, "hub_handler", "stream_encode", map[string]any{
				"task_id": taskID,
			})
			return true
		}
		c.SSEvent("chunk", string(data))
		return true
	})
}

// Status 系统状态概览
// GET /api/status
func (h *HubHandler) Status(c *gin.Context) {
	totalTasks, err := h.store.CountTasks()
	if err != nil {
		totalTasks = int64(len(h.tasks.ListAll(h.logLimit)))
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data: gin.H{
			"mongo_connected": h.store.IsConnected(),
			"total_clients":   h.clients.Count(),
			"total_tasks":     totalTasks,
		},
	})
}

// storeError 存储层错误的统一响应
func (h *HubHandler) storeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	message := "查询失败"
	if errors.Is(err, system.ErrStoreUnavailable) {
		code = http.StatusServiceUnavailable
		message = "持久化存储不可用"
	}
	c.JSON(code, system.APIResponse{
		Code:    code,
		Status:  "failed",
		Message: message,
		Error:   err.Error(),
	})
}
