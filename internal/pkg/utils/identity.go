/**
 * 工具:连接标识编码
 * @author: sun977
 * @date: 2025.11.08
 * @description: 将ROUTER socket分配的原始连接标识编码为文件名/URL安全的字符串
 * @func: EncodeIdentity
 */
package utils

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// maxIdentityLen 编码结果的最大长度
const maxIdentityLen = 120

// EncodeIdentity 将原始连接标识编码为安全字符串
// 规则：合法UTF-8按原文取用，否则取小写十六进制；
// [A-Za-z0-9_-] 之外的字符一律替换为下划线；结果截断到120字符。
// 该函数是全函数(任何输入都有确定输出)，同一输入多次调用结果一致。
func EncodeIdentity(raw []byte) string {
	var s string
	if utf8.Valid(raw) {
		s = string(raw)
	} else {
		s = hex.EncodeToString(raw)
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}

	encoded := b.String()
	if len(encoded) > maxIdentityLen {
		encoded = encoded[:maxIdentityLen]
	}
	return encoded
}
