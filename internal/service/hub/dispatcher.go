/**
 * 服务层:消息调度器
 * @author: sun977
 * @date: 2025.11.09
 * @description: ROUTER socket消息接收循环与任务下发，按消息类型单线程顺序分发
 * @func: NewDispatcher、Run、SendTaskToClient
 */
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/pkg/logger"
	"neohub/internal/pkg/utils"
	"neohub/internal/transport"
)

// Transport 调度器依赖的传输能力
// 由 transport.RouterSocket 实现；Send为fire-and-forget语义，失败只记日志
type Transport interface {
	Recv() ([][]byte, error)
	Send(identity, payload []byte) error
}

// Dispatcher 消息调度器
// 接收循环单线程顺序处理，同一Agent的消息天然按到达顺序进入各注册表，
// 无需额外的跨消息并发控制
type Dispatcher struct {
	transport Transport
	clients   *ClientRegistry
	tasks     *TaskRegistry
	buffer    *OutputBuffer
	auth      AuthManager
	store     Store
	clientLog *utils.ClientLogWriter
}

// NewDispatcher 创建消息调度器
func NewDispatcher(t Transport, clients *ClientRegistry, tasks *TaskRegistry,
	buffer *OutputBuffer, auth AuthManager, store Store, clientLog *utils.ClientLogWriter) *Dispatcher {
	return &Dispatcher{
		transport: t,
		clients:   clients,
		tasks:     tasks,
		buffer:    buffer,
		auth:      auth,
		store:     store,
		clientLog: clientLog,
	}
}

// Run 消息接收循环，ctx取消后退出
func (d *Dispatcher) Run(ctx context.Context) {
	logger.LogSystemEvent("dispatcher", "start", "消息接收循环已启动", logrus.InfoLevel, nil)
	for {
		select {
		case <-ctx.Done():
			logger.LogSystemEvent("dispatcher", "stop", "消息接收循环已退出", logrus.InfoLevel, nil)
			return
		default:
		}

		frames, err := d.transport.Recv()
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.LogSystemEvent("dispatcher", "stop", "消息接收循环已退出", logrus.InfoLevel, nil)
				return
			}
			logger.LogError(err, "dispatcher", "recv", nil)
			continue
		}
		d.processFrames(frames)
	}
}

// processFrames 处理一组多帧消息
// 帧结构不合法或JSON解析失败的消息丢弃并告警，不影响循环
func (d *Dispatcher) processFrames(frames [][]byte) {
	identity, payload := transport.ParseRouterFrames(frames)
	if identity == nil {
		logger.WithField("frame_count", len(frames)).Warn("收到非法帧结构的消息，丢弃")
		return
	}
	if len(payload) == 0 {
		logger.WithField("identity", utils.EncodeIdentity(identity)).Warn("收到空载荷消息，丢弃")
		return
	}

	var msg hubModel.InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.WithFields(logrus.Fields{
			"identity": utils.EncodeIdentity(identity),
			"error":    err.Error(),
		}).Warn("消息载荷不是合法JSON，丢弃")
		return
	}

	switch msg.Type {
	case hubModel.MsgTypeHello:
		d.handleHello(identity, &msg)
	case hubModel.MsgTypeTaskStarted:
		d.handleTaskStarted(identity, &msg)
	case hubModel.MsgTypeOutput:
		d.handleOutput(identity, &msg)
	case hubModel.MsgTypeCompleted:
		d.handleCompleted(identity, &msg)
	default:
		d.handleUnknown(identity, &msg)
	}
}

// handleHello 处理客户端注册
// 凭据缺失或密钥无效发送reject；通过后注册(newest wins)并记认证事件
func (d *Dispatcher) handleHello(identity []byte, msg *hubModel.InboundMessage) {
	if msg.ClientID == "" || msg.APIKey == "" {
		d.sendReject(identity, "Missing client_id or api_key")
		return
	}
	if !d.auth.ValidateAPIKey(msg.APIKey) {
		logger.LogBusinessOperation("authenticate", msg.ClientID, "", "failed",
			"客户端注册被拒绝：API密钥无效", nil)
		d.sendReject(identity, "Invalid API key")
		return
	}

	isNew := d.clients.Upsert(identity, msg.ClientID, msg.Hostname)

	details := map[string]any{"hostname": msg.Hostname, "is_new": isNew}
	if user := d.auth.GetUserByAPIKey(msg.APIKey); user != nil {
		details["user_id"] = user.UserID
		details["user_email"] = user.Email
	}
	if err := d.store.InsertClientEvent(msg.ClientID, hubModel.EventAuthenticated, details, ""); err != nil {
		logger.LogError(err, "dispatcher", "log_auth_event", map[string]any{
			"client_id": msg.ClientID,
		})
	}

	logger.LogBusinessOperation("authenticate", msg.ClientID, "", "success",
		"客户端注册成功", map[string]any{"hostname": msg.Hostname, "is_new": isNew})
	d.sendAck(identity, hubModel.AckMessage{
		Type:   hubModel.MsgTypeAck,
		AckFor: hubModel.MsgTypeHello,
		TS:     nowISO(),
	})
}

// handleTaskStarted 处理任务开始上报
func (d *Dispatcher) handleTaskStarted(identity []byte, msg *hubModel.InboundMessage) {
	if msg.Task == "" {
		logger.WithField("identity", utils.EncodeIdentity(identity)).Warn("task_started缺少任务ID，丢弃")
		return
	}

	now := time.Now().UTC()
	if err := d.tasks.Transition(msg.Task, hubModel.TaskStatusRunning,
		hubModel.TaskStatusUpdate{StartedAt: &now}); err != nil {
		logger.WithFields(logrus.Fields{
			"task_id": msg.Task,
			"error":   err.Error(),
		}).Warn("task_started状态流转被拒绝")
	}

	d.sendAck(identity, hubModel.AckMessage{
		Type:   hubModel.MsgTypeAck,
		AckFor: msg.Task,
		TS:     nowISO(),
	})
}

// handleOutput 处理流式输出分片
// 分片先写客户端文本日志，再进聚合缓冲区分配序列号并逐片落库
func (d *Dispatcher) handleOutput(identity []byte, msg *hubModel.InboundMessage) {
	if msg.Task == "" {
		logger.WithField("identity", utils.EncodeIdentity(identity)).Warn("output缺少任务ID，丢弃")
		return
	}

	clientID := utils.EncodeIdentity(identity)
	msgID := msg.MsgID
	if msgID == "" {
		msgID = uuid.New().String()
	}
	ts := parseTS(msg.TS)

	if err := d.clientLog.AppendOutput(clientID, logger.FormatTimestamp(ts), msg.Task, msgID, msg.Chunk); err != nil {
		logger.LogError(err, "dispatcher", "append_client_log", map[string]any{
			"client_id": clientID,
			"task_id":   msg.Task,
		})
	}

	seq := d.buffer.AppendChunk(msg.Task, clientID, msgID, msg.Chunk, ts)

	logger.WithFields(logrus.Fields{
		"task_id": msg.Task,
		"msg_id":  msgID,
		"seq":     seq,
		"bytes":   len(msg.Chunk),
	}).Debug("已接收输出分片")

	d.sendAck(identity, hubModel.AckMessage{
		Type:   hubModel.MsgTypeAck,
		AckFor: msgID,
		Task:   msg.Task,
		TS:     nowISO(),
	})
}

// handleCompleted 处理任务完成上报
// exit_code==0为completed，否则为failed；首次终止触发一次性聚合
func (d *Dispatcher) handleCompleted(identity []byte, msg *hubModel.InboundMessage) {
	if msg.Task == "" || msg.ExitCode == nil {
		logger.WithField("identity", utils.EncodeIdentity(identity)).Warn("completed缺少任务ID或exit_code，丢弃")
		return
	}

	clientID := utils.EncodeIdentity(identity)
	exitCode := *msg.ExitCode
	status := hubModel.TaskStatusCompleted
	if exitCode != 0 {
		status = hubModel.TaskStatusFailed
	}
	// 完成时间优先取上报的时间戳，缺失时用服务端时间
	ts := parseTS(msg.TS)

	if err := d.tasks.Transition(msg.Task, status,
		hubModel.TaskStatusUpdate{CompletedAt: &ts, ExitCode: &exitCode}); err != nil {
		logger.WithFields(logrus.Fields{
			"task_id": msg.Task,
			"error":   err.Error(),
		}).Warn("completed状态流转被拒绝")
	}

	if err := d.clientLog.AppendCompleted(clientID, logger.FormatTimestamp(ts), msg.Task, exitCode); err != nil {
		logger.LogError(err, "dispatcher", "append_client_log", map[string]any{
			"client_id": clientID,
			"task_id":   msg.Task,
		})
	}

	if err := d.store.InsertClientEvent(clientID, hubModel.EventTaskCompleted,
		map[string]any{"exit_code": exitCode, "status": string(status)}, msg.Task); err != nil {
		logger.LogError(err, "dispatcher", "log_completed_event", map[string]any{
			"task_id": msg.Task,
		})
	}

	logger.LogBusinessOperation("complete_task", clientID, msg.Task, "success",
		"任务完成上报已处理", map[string]any{"exit_code": exitCode, "status": string(status)})

	d.sendAck(identity, hubModel.AckMessage{
		Type:   hubModel.MsgTypeAck,
		AckFor: "completed:" + msg.Task,
		Task:   msg.Task,
		TS:     nowISO(),
	})
}

// handleUnknown 处理未知类型消息
// 告警后仍回ack，让实现了新消息类型的Agent不至于无限重发
func (d *Dispatcher) handleUnknown(identity []byte, msg *hubModel.InboundMessage) {
	logger.WithFields(logrus.Fields{
		"identity": utils.EncodeIdentity(identity),
		"type":     msg.Type,
	}).Warn("收到未知类型消息")

	d.sendAck(identity, hubModel.AckMessage{
		Type:   hubModel.MsgTypeAck,
		AckFor: "unknown",
		TS:     nowISO(),
	})
}

// SendTaskToClient 向指定客户端下发执行任务，返回任务ID
// 任务先登记(status=queued)再下发；下发失败任务仍保留在注册表中
func (d *Dispatcher) SendTaskToClient(identity []byte, clientID, mode string, payload any) (string, error) {
	task := d.tasks.Create(clientID, mode, payload)

	exec := hubModel.ExecMessage{
		Type:    hubModel.MsgTypeExec,
		Task:    task.ID,
		Mode:    mode,
		Payload: payload,
		TS:      nowISO(),
	}
	data, err := json.Marshal(exec)
	if err != nil {
		return "", err
	}

	if err := d.transport.Send(identity, data); err != nil {
		logger.LogError(err, "dispatcher", "send_exec", map[string]any{
			"client_id": clientID,
			"task_id":   task.ID,
		})
		return "", err
	}

	logger.LogBusinessOperation("send_task", clientID, task.ID, "success",
		"任务已下发", map[string]any{"mode": mode})
	return task.ID, nil
}

// sendAck 发送确认应答(fire-and-forget)
func (d *Dispatcher) sendAck(identity []byte, ack hubModel.AckMessage) {
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	if err := d.transport.Send(identity, data); err != nil {
		logger.WithFields(logrus.Fields{
			"identity": utils.EncodeIdentity(identity),
			"ack_for":  ack.AckFor,
			"error":    err.Error(),
		}).Debug("应答发送失败，忽略")
	}
}

// sendReject 发送拒绝应答(fire-and-forget)
func (d *Dispatcher) sendReject(identity []byte, reason string) {
	data, err := json.Marshal(hubModel.RejectMessage{
		Type:   hubModel.MsgTypeReject,
		Reason: reason,
	})
	if err != nil {
		return
	}
	if err := d.transport.Send(identity, data); err != nil {
		logger.WithFields(logrus.Fields{
			"identity": utils.EncodeIdentity(identity),
			"error":    err.Error(),
		}).Debug("拒绝应答发送失败，忽略")
	}
}

// nowISO 当前UTC时间的ISO-8601表示
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTS 解析消息携带的ISO-8601时间戳，缺失或非法时取当前时间
func parseTS(ts string) time.Time {
	if ts == "" {
		return time.Now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
