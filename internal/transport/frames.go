/**
 * 传输层:ROUTER帧解析
 * @author: sun977
 * @date: 2025.11.08
 * @description: 将ROUTER socket收到的多帧消息规范化为(连接标识,载荷)二元组
 * @func: ParseRouterFrames
 */
package transport

// ParseRouterFrames 解析ROUTER多帧消息
// 只接受两种帧形态：
//   [identity, "", payload]  标准形态(带空帧分隔符)
//   [identity, payload]      紧凑形态
// 其他帧数，或三帧形态中第二帧非空，均视为畸形消息，返回(nil, nil)。
// 不返回错误，调用方检查nil后丢弃消息(可记录日志)。
func ParseRouterFrames(frames [][]byte) (identity []byte, payload []byte) {
	if len(frames) == 3 && len(frames[1]) == 0 {
		return frames[0], frames[2]
	}
	if len(frames) == 2 {
		return frames[0], frames[1]
	}
	return nil, nil
}
