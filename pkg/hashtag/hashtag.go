// Package hashtag 从客户端提供的标识字符串（如 User-Agent）
// 派生稳定的匿名标记，避免在库里存明文。
//
// 只是一个关联标记，不是安全边界：不可逆即可，碰撞可以容忍。
package hashtag

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash 计算标识字符串的 SHA-256 十六进制摘要
// 同样的输入永远得到同样的输出，长度固定为64个字符
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
