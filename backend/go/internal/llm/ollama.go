package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"Minerva/backend/go/internal/models"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//
// 返回值:
//
//	*Ollama: 新创建的 Ollama 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// 创建一个带有超时设置的 HTTP 客户端。
	hc := &http.Client{
		Timeout: 120 * time.Second,
	}

	client := olla.NewClient(parsedURL, hc)

	return &Ollama{client: client, model: model}, nil
}

// GenerateContent 使用 Ollama API 生成内容。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	chatReq := o.toOllamaRequest(req)

	var result *olla.ChatResponse // 用于存储生成结果。

	// 调用 Ollama 客户端的 Chat 方法生成内容（非流式）。
	err := o.client.Chat(ctx, chatReq, func(resp olla.ChatResponse) error {
		result = &resp
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("ollama returned no response")
	}

	return &models.GenerateContentResponse{
		Text:         result.Message.Content,
		ModelVersion: result.Model,
	}, nil
}

// toOllamaRequest 将内部 GenerateContentRequest 转换为 Ollama 聊天请求。
func (o *Ollama) toOllamaRequest(req *models.GenerateContentRequest) *olla.ChatRequest {
	var messages []olla.Message
	if req.SystemInstruction != "" {
		messages = append(messages, olla.Message{Role: "system", Content: req.SystemInstruction})
	}
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == models.SpeakerModel {
			role = "assistant"
		}
		messages = append(messages, olla.Message{Role: role, Content: msg.Text})
	}

	options := map[string]interface{}{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxOutputTokens > 0 {
		options["num_predict"] = req.MaxOutputTokens
	}

	stream := false
	return &olla.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}
}
