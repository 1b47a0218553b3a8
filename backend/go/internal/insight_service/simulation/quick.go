package simulation

import (
	"context"
	"fmt"
	"strings"

	"Minerva/backend/go/internal/llm"
	"Minerva/backend/go/internal/models"
)

// quickFallbackAnswer 是 LLM 输出无法解析时的固定回答。
const quickFallbackAnswer = "I could not produce a structured analysis for this question right now. Please rephrase the scenario or try again later."

// quickFallbackConfidence 是回退回答对应的低置信度。
const quickFallbackConfidence = 0.25

const quickSimulateSystemPrompt = `You give a fast qualitative answer to a business "what-if" question, grounded in the user's goals and recent signals.
Answer with JSON only:
{"answer": "<2-3 short paragraphs separated by blank lines>", "key_points": ["<2-3 takeaways>"], "confidence": <0..1>}`

// QuickSimulate 是不做因果遍历与变体生成的轻量模拟：
// 收集同样的目标与信号上下文，单次 LLM 调用直接作答。
// 输出无法解析时降级为固定的道歉回答，永不向调用方返回解析错误。
func (s *Simulator) QuickSimulate(ctx context.Context, userID, question string) (*models.QuickSimulationResponse, error) {
	goals, signals := s.gatherContext(ctx, userID, 0)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", question)
	if len(goals) > 0 {
		sb.WriteString("Active goals:\n")
		for _, g := range goals {
			fmt.Fprintf(&sb, "- %s (priority %d)\n", g.Title, g.Priority)
		}
	}
	if len(signals) > 0 {
		sb.WriteString("Recent signals:\n")
		for _, sig := range signals {
			fmt.Fprintf(&sb, "- [%s] %s\n", sig.Classification, sig.Content)
		}
	}

	fallback := &models.QuickSimulationResponse{
		Question:   question,
		Answer:     quickFallbackAnswer,
		Confidence: quickFallbackConfidence,
	}

	resp, err := s.llm.GenerateContent(ctx, models.NewTextRequest(sb.String(), quickSimulateSystemPrompt, 0.5, 768))
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("快速模拟生成失败，返回回退回答")
		return fallback, nil
	}

	var parsed struct {
		Answer     string   `json:"answer"`
		KeyPoints  []string `json:"key_points"`
		Confidence float64  `json:"confidence"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil || parsed.Answer == "" {
		s.logger.Warn("快速模拟输出无法解析，返回回退回答")
		return fallback, nil
	}

	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	if len(parsed.KeyPoints) > 3 {
		parsed.KeyPoints = parsed.KeyPoints[:3]
	}

	return &models.QuickSimulationResponse{
		Question:   question,
		Answer:     parsed.Answer,
		KeyPoints:  parsed.KeyPoints,
		Confidence: parsed.Confidence,
	}, nil
}
