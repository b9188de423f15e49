// internal/llm/reply.go
package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// 模型常在 JSON 前后附加说明文字或代码块标记
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// DecodeJSONReply 取回复中第一个 '{' 到最后一个 '}' 之间的内容解析；
// 找不到时整体解析
func DecodeJSONReply(reply string, v interface{}) error {
	raw := jsonObjectPattern.FindString(reply)
	if raw == "" {
		raw = strings.TrimSpace(reply)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("模型返回的不是有效JSON: %w", err)
	}
	return nil
}
