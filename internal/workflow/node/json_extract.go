package node

import (
	"encoding/json"
	"strings"
)

// ExtractJSONValue 尝试从模型输出中截取"第一个完整 JSON 对象/数组"。
// 这是一个容错逻辑：模型可能会在 JSON 前后夹杂多余文本（解释、markdown 代码块等）。
// 找不到完整 JSON 值时返回空串。
func ExtractJSONValue(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}

	// 从第一个 JSON 起始符开始，用 Decoder 消费一个完整 JSON 值；
	// Decoder 天然处理字符串内的括号与转义，比手写括号计数可靠。
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' && raw[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(raw[i:]))
		dec.UseNumber()
		var v json.RawMessage
		if err := dec.Decode(&v); err == nil {
			return string(v)
		}
		// 起始符处不是合法 JSON，继续向后找下一个起始符
	}
	return ""
}
