package models

import "time"

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser  SpeakerRole = "user"  // 用户角色。
	SpeakerModel SpeakerRole = "model" // 模型角色。
)

// Message 代表一轮对话中的单条文本消息。
type Message struct {
	Role SpeakerRole `json:"role,omitempty"` // 内容的生产者，'user' 或 'model'。
	Text string      `json:"text"`           // 消息文本。
}

// GenerateContentRequest 定义了文本生成请求的结构。
// 所有分类、解释、推荐文本都通过这一个契约访问文本生成服务。
type GenerateContentRequest struct {
	Messages          []Message `json:"messages"`                    // 请求的消息列表。
	SystemInstruction string    `json:"system_instruction,omitempty"` // 系统提示词。
	Temperature       float32   `json:"temperature,omitempty"`       // 采样温度。
	MaxOutputTokens   int       `json:"max_output_tokens,omitempty"` // 输出 token 上限，0 表示使用服务端默认值。
}

// GenerateContentResponse 定义了文本生成响应的结构。
type GenerateContentResponse struct {
	Text         string    `json:"text"`                   // 响应文本（已拼接所有候选部分）。
	CreateTime   time.Time `json:"create_time,omitempty"`  // 响应创建时间。
	ResponseID   string    `json:"response_id,omitempty"`  // 响应ID。
	ModelVersion string    `json:"model_version,omitempty"` // 模型版本。
}

// NewTextRequest 构造一个单条用户消息的生成请求。
func NewTextRequest(prompt, systemInstruction string, temperature float32, maxTokens int) *GenerateContentRequest {
	return &GenerateContentRequest{
		Messages:          []Message{{Role: SpeakerUser, Text: prompt}},
		SystemInstruction: systemInstruction,
		Temperature:       temperature,
		MaxOutputTokens:   maxTokens,
	}
}
