package analyzer

import (
	"context"
	"fmt"
	"strings"

	"Minerva/backend/go/internal/llm"
	"Minerva/backend/go/internal/models"
)

// 关系文本词表。命中词表的链不需要请求文本生成服务。
var (
	threatLexicon      = []string{"threatens", "risks", "hinders", "blocks", "delays"}
	opportunityLexicon = []string{"enables", "accelerates", "supports", "improves"}
)

// lexiconClassify 是分类的第一阶段：纯确定性的词表扫描。
// 按链上顺序扫描每一跳的关系文本，第一个命中的词表决定类型；
// 同一跳内威胁词表优先。没有任何命中时返回 false。
func lexiconClassify(chain *models.CausalChain) (models.ImplicationType, bool) {
	for _, hop := range chain.Hops {
		rel := strings.ToLower(hop.Relationship)
		for _, kw := range threatLexicon {
			if strings.Contains(rel, kw) {
				return models.ImplicationThreat, true
			}
		}
		for _, kw := range opportunityLexicon {
			if strings.Contains(rel, kw) {
				return models.ImplicationOpportunity, true
			}
		}
	}
	return models.ImplicationNeutral, false
}

// ChainClassifier 是分类的第二阶段：对词表未能判定的链请求一次生成式判断。
// 昂贵且可失败的路径被隔离在这个接口后面，便于替换与测试。
type ChainClassifier interface {
	ClassifyChain(ctx context.Context, chain *models.CausalChain, goals []*models.Goal) (models.ImplicationType, error)
}

const classifySystemPrompt = `You are a commercial intelligence analyst. Given a causal chain and the
user's business goals, decide whether the chain represents an opportunity or a threat to those goals.
Answer with exactly one word: opportunity, threat, or neutral.`

// LLMClassifier 是基于文本生成服务的 ChainClassifier 实现。
type LLMClassifier struct {
	llm llm.LLM
}

// NewLLMClassifier 创建一个新的 LLMClassifier。
func NewLLMClassifier(client llm.LLM) *LLMClassifier {
	return &LLMClassifier{llm: client}
}

// ClassifyChain 请求一个单词的分类判断；无法解析的回答按错误处理，由调用方降级为中性。
func (c *LLMClassifier) ClassifyChain(ctx context.Context, chain *models.CausalChain, goals []*models.Goal) (models.ImplicationType, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Trigger event: %s\nCausal chain:\n", chain.TriggerEvent)
	for _, hop := range chain.Hops {
		fmt.Fprintf(&sb, "- %s %s %s\n", hop.SourceEntity, hop.Relationship, hop.TargetEntity)
	}
	sb.WriteString("Goals:\n")
	for _, g := range goals {
		fmt.Fprintf(&sb, "- %s: %s\n", g.Title, g.Description)
	}

	resp, err := c.llm.GenerateContent(ctx, models.NewTextRequest(sb.String(), classifySystemPrompt, 0.1, 8))
	if err != nil {
		return models.ImplicationNeutral, fmt.Errorf("classification request failed: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Text))
	switch {
	case strings.HasPrefix(answer, "opportunity"):
		return models.ImplicationOpportunity, nil
	case strings.HasPrefix(answer, "threat"):
		return models.ImplicationThreat, nil
	case strings.HasPrefix(answer, "neutral"):
		return models.ImplicationNeutral, nil
	default:
		return models.ImplicationNeutral, fmt.Errorf("unparseable classification answer: %q", resp.Text)
	}
}
