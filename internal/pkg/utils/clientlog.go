/**
 * 工具:客户端文本日志
 * @author: sun977
 * @date: 2025.11.08
 * @description: 按客户端维度的追加式文本日志(人类可读)，每个事件一条记录
 * @func: ClientLogWriter 及其 AppendOutput、AppendCompleted 方法
 */
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// ClientLogWriter 客户端文本日志写入器
// 每个客户端一个日志文件(client_<client_id>.log)，只追加不覆盖
type ClientLogWriter struct {
	dir string // 日志目录
}

// NewClientLogWriter 创建客户端文本日志写入器
// 目录不存在时自动创建
func NewClientLogWriter(dir string) (*ClientLogWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create client log dir: %w", err)
	}
	return &ClientLogWriter{dir: dir}, nil
}

// Append 追加一条文本记录到指定客户端的日志文件
func (w *ClientLogWriter) Append(clientID, text string) error {
	path := filepath.Join(w.dir, fmt.Sprintf("client_%s.log", clientID))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open client log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text + "\n"); err != nil {
		return fmt.Errorf("failed to append client log %s: %w", path, err)
	}
	return nil
}

// AppendOutput 追加一条任务输出记录
func (w *ClientLogWriter) AppendOutput(clientID, ts, taskID, msgID, chunk string) error {
	return w.Append(clientID, fmt.Sprintf("[%s] TASK:%s MSG:%s OUTPUT:\n%s\n", ts, taskID, msgID, chunk))
}

// AppendCompleted 追加一条任务完成记录
func (w *ClientLogWriter) AppendCompleted(clientID, ts, taskID string, exitCode int) error {
	return w.Append(clientID, fmt.Sprintf("[%s] TASK:%s COMPLETED exit_code=%d", ts, taskID, exitCode))
}
