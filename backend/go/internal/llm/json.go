package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON 将模型输出中的 JSON 解析到 v。
// 模型经常把 JSON 包在 markdown 代码块或说明文字里，
// 这里先裁剪出第一个完整的 JSON 对象或数组再反序列化。
func DecodeJSON(text string, v interface{}) error {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON payload in model output")
	}
	var end int
	if cleaned[start] == '{' {
		end = strings.LastIndex(cleaned, "}")
	} else {
		end = strings.LastIndex(cleaned, "]")
	}
	if end <= start {
		return fmt.Errorf("unterminated JSON payload in model output")
	}

	if err := json.Unmarshal([]byte(cleaned[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to unmarshal model output: %w", err)
	}
	return nil
}
