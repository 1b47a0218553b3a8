package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"Minerva/backend/go/internal/causal"
	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/horizon"
	"Minerva/backend/go/internal/llm"
	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/fanout"
	"Minerva/backend/go/pkg/logger"

	"github.com/google/uuid"
)

const (
	// traversalMinConfidence 是遍历时的内部置信度下限，刻意放得很低，
	// 以便为分析拿到尽可能多的链；真正的过滤发生在综合分阶段。
	traversalMinConfidence = 0.2

	// maxGoalsPerAnalysis 是单次分析纳入的 active 目标数量上限（按优先级取前N个）。
	maxGoalsPerAnalysis = 20

	// maxRecommendedActions 是单条洞察携带的建议行动数量上限。
	maxRecommendedActions = 3

	// relevanceFallbackPriority 是触发生成式相关性兜底检查的最低目标优先级。
	relevanceFallbackPriority = 3
)

// AnalyzeRequest 是一次事件分析的输入。
type AnalyzeRequest struct {
	Event          string  `json:"event" binding:"required"` // 触发事件原文
	MaxHops        int     `json:"max_hops,omitempty"`       // 因果遍历跳数上限
	IncludeNeutral bool    `json:"include_neutral,omitempty"` // 是否保留不影响任何目标的链
	MinScore       float64 `json:"min_score,omitempty"`      // 综合分过滤下限
}

// Analyzer 将因果链与用户目标转换为经过评分和分类的洞察。
// 每次 Analyze 调用是一条纯流水线，链与链之间没有共享可变状态。
type Analyzer struct {
	chains      causal.ChainProvider
	goals       goal.Store
	llm         llm.LLM
	classifier  ChainClassifier
	horizon     horizon.Categorizer // 可为 nil，表示跳过时间范围富化
	logger      *logger.Logger
	concurrency int
}

// NewAnalyzer 创建一个新的 Analyzer，并在启动时校验加权常量。
func NewAnalyzer(chains causal.ChainProvider, goals goal.Store, client llm.LLM, categorizer horizon.Categorizer, log *logger.Logger, concurrency int) (*Analyzer, error) {
	if err := ValidateWeights(); err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Analyzer{
		chains:      chains,
		goals:       goals,
		llm:         client,
		classifier:  NewLLMClassifier(client),
		horizon:     categorizer,
		logger:      log,
		concurrency: concurrency,
	}, nil
}

// Analyze 对一个触发事件运行完整的因果分析流水线，
// 返回按综合分降序、且不低于 MinScore 的洞察列表。
// 上游故障降级为空结果而不是错误；调用方总能拿到一个良构的列表。
func (a *Analyzer) Analyze(ctx context.Context, userID string, req AnalyzeRequest) ([]*models.Implication, error) {
	chains, err := a.chains.Traverse(ctx, userID, req.Event, req.MaxHops, traversalMinConfidence)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("因果遍历失败，本次分析返回空结果")
		return []*models.Implication{}, nil
	}

	goals, err := a.goals.ListActiveGoals(ctx, userID, maxGoalsPerAnalysis)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("读取 active 目标失败，本次分析返回空结果")
		return []*models.Implication{}, nil
	}

	// 没有链可推理，或没有目标可对照，都直接返回空。
	if len(chains) == 0 || len(goals) == 0 {
		return []*models.Implication{}, nil
	}

	// 每条链独立分析；按下标收集结果，保证顺序执行与并发执行等价。
	results := fanout.Map(ctx, a.concurrency, chains, func(ctx context.Context, _ int, chain *models.CausalChain) (*models.Implication, error) {
		return a.analyzeChain(ctx, userID, req, chain, goals)
	})

	implications := make([]*models.Implication, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			a.logger.WithError(models.ErrorInfo{Message: r.Err.Error()}).Warn("单条因果链分析失败，已跳过")
			continue
		}
		if r.Value == nil {
			continue // 链被丢弃（不影响任何目标且未要求保留中性结果）
		}
		if r.Value.CombinedScore >= req.MinScore {
			implications = append(implications, r.Value)
		}
	}

	sort.SliceStable(implications, func(i, j int) bool {
		return implications[i].CombinedScore > implications[j].CombinedScore
	})

	a.enrichHorizons(ctx, implications)

	return implications, nil
}

// analyzeChain 对单条因果链做目标匹配、分类、评分与解释生成。
// 返回 (nil, nil) 表示该链被整体丢弃。
func (a *Analyzer) analyzeChain(ctx context.Context, userID string, req AnalyzeRequest, chain *models.CausalChain, goals []*models.Goal) (*models.Implication, error) {
	affected := a.affectedGoals(ctx, chain, goals)
	if len(affected) == 0 && !req.IncludeNeutral {
		return nil, nil
	}

	implType, matched := lexiconClassify(chain)
	if !matched {
		if len(affected) > 0 {
			classified, err := a.classifier.ClassifyChain(ctx, chain, affected)
			if err != nil {
				a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "parse_error"}).Warn("生成式分类失败，按中性处理")
				classified = models.ImplicationNeutral
			}
			implType = classified
		} else {
			implType = models.ImplicationNeutral
		}
	}

	var prioritySum float64
	affectedIDs := make([]uint, 0, len(affected))
	for _, g := range affected {
		prioritySum += float64(g.Priority)
		affectedIDs = append(affectedIDs, g.ID)
	}
	var avgPriority float64
	if len(affected) > 0 {
		avgPriority = prioritySum / float64(len(affected))
	}

	impact := impactScore(len(affected), avgPriority, chain.FinalConfidence)
	confidence := clamp01(chain.FinalConfidence)
	urgency := urgencyFromHint(chain.TimeToImpact)

	content, actions := a.narrate(ctx, chain, implType, affected)

	return &models.Implication{
		ID:                 uuid.NewString(),
		UserID:             userID,
		TriggerEvent:       chain.TriggerEvent,
		Content:            content,
		Type:               implType,
		ImpactScore:        impact,
		Confidence:         confidence,
		Urgency:            urgency,
		CombinedScore:      combinedScore(impact, confidence, urgency),
		CausalChain:        chain,
		AffectedGoalIDs:    affectedIDs,
		RecommendedActions: actions,
		TimeToImpact:       chain.TimeToImpact,
		CreatedAt:          time.Now(),
	}, nil
}

// affectedGoals 判定链的末端实体影响哪些目标。
// 先做确定性的关键词重叠匹配；未命中且目标优先级足够高时，
// 退回到一次是/否的生成式相关性检查（失败视为不相关）。
func (a *Analyzer) affectedGoals(ctx context.Context, chain *models.CausalChain, goals []*models.Goal) []*models.Goal {
	finalHop := chain.FinalHop()
	if finalHop == nil {
		return nil
	}
	entity := finalHop.TargetEntity

	var affected []*models.Goal
	for _, g := range goals {
		goalText := g.Title + " " + g.Description
		if keywordMatch(entity, goalText) {
			affected = append(affected, g)
			continue
		}
		if g.Priority >= relevanceFallbackPriority && a.checkRelevance(ctx, entity, g) {
			affected = append(affected, g)
		}
	}
	return affected
}

const relevanceSystemPrompt = `You decide whether a market entity is relevant to a business goal.
Answer with exactly one word: yes or no.`

// checkRelevance 做一次是/否的相关性查询；任何失败都按"不相关"处理。
func (a *Analyzer) checkRelevance(ctx context.Context, entity string, g *models.Goal) bool {
	prompt := fmt.Sprintf("Entity: %s\nGoal: %s — %s\nIs the entity relevant to this goal?", entity, g.Title, g.Description)
	resp, err := a.llm.GenerateContent(ctx, models.NewTextRequest(prompt, relevanceSystemPrompt, 0.0, 4))
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("相关性检查失败，按不相关处理")
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(resp.Text)), "yes")
}

const narrateSystemPrompt = `You are a commercial intelligence analyst writing for a sales professional.
Given a causal chain, its classification, and the affected goals, produce JSON only:
{"explanation": "<2-3 sentences on why this matters>", "recommended_actions": ["<up to 3 concrete actions>"]}`

// narrate 生成洞察的自然语言解释与建议行动。
// 生成失败不会使该链的结果流产：退回到模板化解释与空行动列表。
func (a *Analyzer) narrate(ctx context.Context, chain *models.CausalChain, implType models.ImplicationType, affected []*models.Goal) (string, []string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Trigger event: %s\nClassification: %s\nCausal chain:\n", chain.TriggerEvent, implType)
	for _, hop := range chain.Hops {
		fmt.Fprintf(&sb, "- %s %s %s\n", hop.SourceEntity, hop.Relationship, hop.TargetEntity)
	}
	if len(affected) > 0 {
		sb.WriteString("Affected goals:\n")
		for _, g := range affected {
			fmt.Fprintf(&sb, "- %s (priority %d)\n", g.Title, g.Priority)
		}
	}

	resp, err := a.llm.GenerateContent(ctx, models.NewTextRequest(sb.String(), narrateSystemPrompt, 0.4, 512))
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("解释生成失败，使用模板化回退")
		return fallbackNarrative(chain, implType), nil
	}

	var parsed struct {
		Explanation        string   `json:"explanation"`
		RecommendedActions []string `json:"recommended_actions"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil || parsed.Explanation == "" {
		a.logger.WithError(models.ErrorInfo{Message: fmt.Sprintf("%v", err), Type: "parse_error"}).Warn("解释输出无法解析，使用模板化回退")
		return fallbackNarrative(chain, implType), nil
	}

	actions := parsed.RecommendedActions
	if len(actions) > maxRecommendedActions {
		actions = actions[:maxRecommendedActions]
	}
	return parsed.Explanation, actions
}

// fallbackNarrative 是生成失败时的模板化解释。
func fallbackNarrative(chain *models.CausalChain, implType models.ImplicationType) string {
	target := chain.TriggerEvent
	if hop := chain.FinalHop(); hop != nil {
		target = hop.TargetEntity
	}
	return fmt.Sprintf("%q is expected to reach %q through %d causal step(s). Based on the chain's relationships this looks like a %s signal for your active goals.",
		chain.TriggerEvent, target, len(chain.Hops), implType)
}

// enrichHorizons 为幸存的洞察补充时间范围。
// 条目通过洞察ID关联送出与送回，分类失败时洞察保持未富化，不影响返回。
func (a *Analyzer) enrichHorizons(ctx context.Context, implications []*models.Implication) {
	if a.horizon == nil || len(implications) == 0 {
		return
	}

	items := make([]horizon.Item, 0, len(implications))
	for _, impl := range implications {
		items = append(items, horizon.Item{
			CorrelationID: impl.ID,
			Content:       impl.Content,
			TriggerEvent:  impl.TriggerEvent,
			CausalChain:   impl.CausalChain,
		})
	}

	assignments, err := a.horizon.Categorize(ctx, items)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("时间范围分类失败，洞察保持未富化")
		return
	}

	for _, impl := range implications {
		if assignment, ok := assignments[impl.ID]; ok {
			impl.TimeHorizon = assignment.Horizon
			if assignment.TimeToImpact != "" {
				impl.TimeToImpact = assignment.TimeToImpact
			}
		}
	}
}
