package handler

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

const flashCookieName = "balancehub_flash"

// 闪现消息：写进 cookie，下一次渲染页面时取出并清掉。
// 内容是 base64(JSON 数组)，避免 cookie 值里出现非法字符。

func encodeFlashes(messages []string) string {
	data, err := json.Marshal(messages)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func decodeFlashes(raw string) []string {
	data, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var messages []string
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil
	}
	return messages
}

// setFlash 追加一条闪现消息
func setFlash(c *gin.Context, message string) {
	var messages []string
	if raw, err := c.Cookie(flashCookieName); err == nil && raw != "" {
		messages = decodeFlashes(raw)
	}
	messages = append(messages, message)
	c.SetCookie(flashCookieName, encodeFlashes(messages), 300, "/", "", false, true)
}

// takeFlashes 取出全部闪现消息并删除 cookie
func takeFlashes(c *gin.Context) []string {
	raw, err := c.Cookie(flashCookieName)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookieName, "", -1, "/", "", false, true)
	return decodeFlashes(raw)
}
