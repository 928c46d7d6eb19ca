/**
 * 传输层:ROUTER socket封装
 * @author: sun977
 * @date: 2025.11.08
 * @description: 封装zmq4 ROUTER socket，提供绑定、接收多帧、定向应答能力
 * @func: NewRouterSocket、Bind、Recv、Send、Close
 */
package transport

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"

	"neohub/internal/pkg/logger"
)

// RouterSocket ROUTER socket封装
// 接收端只应有一个goroutine调用Recv；Send对端不消费时消息由socket缓冲，不阻塞调用方
type RouterSocket struct {
	sock zmq4.Socket
}

// NewRouterSocket 创建ROUTER socket
// ctx取消后阻塞中的Recv会返回错误，用于接收循环的优雅退出
func NewRouterSocket(ctx context.Context) *RouterSocket {
	return &RouterSocket{
		sock: zmq4.NewRouter(ctx),
	}
}

// Bind 绑定监听地址(tcp://host:port 或 ipc://path)
func (r *RouterSocket) Bind(addr string) error {
	if err := r.sock.Listen(addr); err != nil {
		return fmt.Errorf("failed to bind router socket to %s: %w", addr, err)
	}
	logger.Infof("Bound ROUTER socket to %s", addr)
	return nil
}

// Recv 接收一条多帧消息
// ROUTER socket收到的第一帧是对端连接标识，后续帧为消息本体
func (r *RouterSocket) Recv() ([][]byte, error) {
	msg, err := r.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Frames, nil
}

// Send 向指定连接标识发送载荷
// 按标准三帧形态 [identity, "", payload] 发送，发后即忘
func (r *RouterSocket) Send(identity, payload []byte) error {
	msg := zmq4.NewMsgFrom(identity, []byte{}, payload)
	if err := r.sock.Send(msg); err != nil {
		return fmt.Errorf("failed to send to %s: %w", string(identity), err)
	}
	return nil
}

// Close 关闭socket
func (r *RouterSocket) Close() error {
	return r.sock.Close()
}
