package llm

import (
	"context"
	"fmt"

	"Minerva/backend/go/internal/config"
	"Minerva/backend/go/internal/models"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 洞察流水线中的分类、解释、推荐与模拟评估全部通过该接口访问文本生成服务。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
}

// NewLLM 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
// 如果配置启用了速率限制，返回的客户端会被令牌桶装饰器包裹。
func NewLLM(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	var (
		client LLM
		err    error
	)
	switch cfg.Provider {
	case "gemini":
		client, err = NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
	case "openai":
		client, err = NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey)
	case "ollama":
		client, err = NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit.Enabled {
		client = NewRateLimited(client, cfg.RateLimit.Rate, cfg.RateLimit.Capacity)
	}
	return client, nil
}
