package horizon

import (
	"context"
	"encoding/json"
	"fmt"

	"Minerva/backend/go/internal/llm"
	"Minerva/backend/go/internal/models"
)

// 时间范围桶。
const (
	ShortTerm  = "short_term"  // 数天到数周
	MediumTerm = "medium_term" // 一到三个月
	LongTerm   = "long_term"   // 三个月以上
)

// Item 是送入分类的单条洞察摘要。
// CorrelationID 在分类前生成并原样带回，重新挂接不依赖内容文本匹配，
// 避免模型归一化或截断文本时静默丢失富化结果。
type Item struct {
	CorrelationID string              `json:"id"`
	Content       string              `json:"content"`
	TriggerEvent  string              `json:"trigger_event"`
	CausalChain   *models.CausalChain `json:"causal_chain,omitempty"`
}

// Assignment 是单条洞察的时间范围判定。
type Assignment struct {
	Horizon      string `json:"horizon"`
	TimeToImpact string `json:"time_to_impact,omitempty"`
}

// Categorizer 将一批洞察摘要划入时间范围桶，按关联ID返回判定。
// 对洞察流水线而言这是一个可失败的外部协作方，失败时洞察保持未富化。
type Categorizer interface {
	Categorize(ctx context.Context, items []Item) (map[string]Assignment, error)
}

const categorizeSystemPrompt = `You are a commercial intelligence analyst. You bucket business insights
into temporal horizons based on when their impact is expected to materialize:
- "short_term": days to a few weeks
- "medium_term": one to three months
- "long_term": beyond three months

Answer with JSON only, no prose:
{"assignments": [{"id": "<item id>", "horizon": "<bucket>", "time_to_impact": "<free-text estimate>"}]}
Every item must appear exactly once, with its id copied verbatim.`

// LLMCategorizer 是基于文本生成服务的 Categorizer 实现。
type LLMCategorizer struct {
	llm llm.LLM
}

// NewLLMCategorizer 创建一个新的 LLMCategorizer。
func NewLLMCategorizer(client llm.LLM) *LLMCategorizer {
	return &LLMCategorizer{llm: client}
}

// Categorize 将所有条目打包成一次生成请求并解析判定结果。
func (c *LLMCategorizer) Categorize(ctx context.Context, items []Item) (map[string]Assignment, error) {
	if len(items) == 0 {
		return map[string]Assignment{}, nil
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal horizon items: %w", err)
	}
	prompt := fmt.Sprintf("Bucket the following insights:\n%s", payload)

	resp, err := c.llm.GenerateContent(ctx, models.NewTextRequest(prompt, categorizeSystemPrompt, 0.2, 1024))
	if err != nil {
		return nil, fmt.Errorf("horizon categorization failed: %w", err)
	}

	var parsed struct {
		Assignments []struct {
			ID           string `json:"id"`
			Horizon      string `json:"horizon"`
			TimeToImpact string `json:"time_to_impact"`
		} `json:"assignments"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	assignments := make(map[string]Assignment, len(parsed.Assignments))
	for _, a := range parsed.Assignments {
		switch a.Horizon {
		case ShortTerm, MediumTerm, LongTerm:
			assignments[a.ID] = Assignment{Horizon: a.Horizon, TimeToImpact: a.TimeToImpact}
		}
	}
	return assignments, nil
}
