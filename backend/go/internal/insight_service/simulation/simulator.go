package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"Minerva/backend/go/internal/causal"
	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/insight"
	"Minerva/backend/go/internal/llm"
	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/fanout"
	"Minerva/backend/go/pkg/logger"
)

const (
	// maxOutcomesCap 与 maxHopsCap 是请求参数的硬上限。
	maxOutcomesCap = 5
	maxHopsCap     = 5

	// 缺省的变体数量与遍历跳数。
	defaultOutcomes = 3
	defaultHops     = 3

	// contextGoals 与 contextSignals 是模拟上下文收集的目标与近期信号数量。
	contextGoals   = 5
	contextSignals = 5

	// maxKeyInsights 是关键洞察条数上限。
	maxKeyInsights = 4

	// noOutcomeConfidence 是零结局时的固定置信度。
	noOutcomeConfidence = 0.3

	// scenarioTypeWhatIf 是本模拟器支持的情景类型。
	scenarioTypeWhatIf = "what_if"

	// variantMinConfidence 是变体因果遍历的置信度下限。
	variantMinConfidence = 0.2
)

// noOutcomeInsight 是零结局时写入关键洞察的固定消息。
const noOutcomeInsight = "No scenario outcomes could be generated; treat this simulation as inconclusive."

// defaultVariables 是变量提取失败时的固定回退列表。
var defaultVariables = []string{"timing", "market_response", "competition"}

// Simulator 为 "what-if" 问题生成并评估竞争性的未来情景。
// 每次 Simulate 调用是一条从请求到结果的纯流水线，没有持久状态。
type Simulator struct {
	chains      causal.ChainProvider
	goals       goal.Store
	insights    insight.Store
	llm         llm.LLM
	logger      *logger.Logger
	concurrency int
}

// NewSimulator 创建一个新的 Simulator。
func NewSimulator(chains causal.ChainProvider, goals goal.Store, insights insight.Store, client llm.LLM, log *logger.Logger, concurrency int) *Simulator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Simulator{
		chains:      chains,
		goals:       goals,
		insights:    insights,
		llm:         client,
		logger:      log,
		concurrency: concurrency,
	}
}

// Simulate 运行完整的情景模拟流水线。
func (s *Simulator) Simulate(ctx context.Context, userID string, req models.SimulationRequest) (*models.SimulationResult, error) {
	start := time.Now()

	maxOutcomes := clampParam(req.MaxOutcomes, defaultOutcomes, maxOutcomesCap)
	maxHops := clampParam(req.MaxHops, defaultHops, maxHopsCap)

	// 1. 收集上下文：高优先级目标与近期信号。
	goals, signals := s.gatherContext(ctx, userID, req.RelatedGoalID)

	// 2. 提取关键变量（调用方已提供时跳过提取）。
	variables := req.Variables
	if len(variables) == 0 {
		variables = s.extractVariables(ctx, req.Scenario)
	}

	// 3. 生成情景变体。
	variants := s.generateVariants(ctx, req.Scenario, variables, goals, maxOutcomes)

	// 4. 独立评估每个变体；失败的变体被静默丢弃，不伪造结局。
	results := fanout.Map(ctx, s.concurrency, variants, func(ctx context.Context, _ int, variant *models.SimulationScenario) (*models.SimulationOutcome, error) {
		return s.evaluateVariant(ctx, userID, variant, goals, maxHops)
	})
	outcomes := make([]*models.SimulationOutcome, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.logger.WithError(models.ErrorInfo{Message: r.Err.Error()}).Warn("情景变体评估失败，已丢弃")
			continue
		}
		if r.Value != nil {
			outcomes = append(outcomes, r.Value)
		}
	}

	result := &models.SimulationResult{
		Scenario:     req.Scenario,
		ScenarioType: scenarioTypeWhatIf,
		Outcomes:     outcomes,
		Sensitivity:  sensitivity(variables, outcomes),
	}

	// 5-8. 推荐路径、关键洞察与总体置信度。
	result.RecommendedPath, result.Reasoning = recommend(outcomes)
	result.KeyInsights = keyInsights(outcomes)
	result.Confidence = confidence(outcomes)

	// 附带近期信号数量只用于日志观测。
	s.logger.WithPayload(map[string]interface{}{
		"variants": len(variants), "outcomes": len(outcomes), "signals": len(signals),
	}).Debug("情景模拟完成")

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// Classify 为持久化目的推导模拟结果的总体分类：
// 正面结局多于负面为机会，反之为威胁，否则中性。
func Classify(result *models.SimulationResult) models.ImplicationType {
	var positive, negative int
	for _, o := range result.Outcomes {
		switch o.Classification {
		case models.OutcomePositive:
			positive++
		case models.OutcomeNegative:
			negative++
		}
	}
	switch {
	case positive > negative:
		return models.ImplicationOpportunity
	case negative > positive:
		return models.ImplicationThreat
	default:
		return models.ImplicationNeutral
	}
}

// gatherContext 收集最多 contextGoals 个 active 目标（优先级最高在前）
// 和最多 contextSignals 条近期信号；RelatedGoalID 指定的目标被置顶。
// 任一读取失败都降级为空集，不中断模拟。
func (s *Simulator) gatherContext(ctx context.Context, userID string, relatedGoalID uint) ([]*models.Goal, []*models.InsightRecord) {
	goals, err := s.goals.ListActiveGoals(ctx, userID, contextGoals)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("读取目标上下文失败，模拟继续")
		goals = nil
	}
	if relatedGoalID != 0 {
		for i, g := range goals {
			if g.ID == relatedGoalID && i > 0 {
				pinned := goals[i]
				copy(goals[1:i+1], goals[0:i])
				goals[0] = pinned
				break
			}
		}
	}

	signals, err := s.insights.Query(ctx, userID, insight.QueryFilter{Limit: contextSignals})
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("读取近期信号失败，模拟继续")
		signals = nil
	}
	return goals, signals
}

const extractVariablesSystemPrompt = `You identify the key variables that drive a business scenario's outcome.
Answer with JSON only: {"variables": ["<3 to 5 short snake_case variable names>"]}`

// extractVariables 从情景文本中提取 3-5 个关键变量；失败时使用固定回退列表。
func (s *Simulator) extractVariables(ctx context.Context, scenario string) []string {
	resp, err := s.llm.GenerateContent(ctx, models.NewTextRequest("Scenario: "+scenario, extractVariablesSystemPrompt, 0.3, 128))
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("变量提取失败，使用默认变量")
		return defaultVariables
	}

	var parsed struct {
		Variables []string `json:"variables"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil || len(parsed.Variables) == 0 {
		s.logger.Warn("变量输出无法解析，使用默认变量")
		return defaultVariables
	}
	if len(parsed.Variables) > 5 {
		parsed.Variables = parsed.Variables[:5]
	}
	return parsed.Variables
}

const generateVariantsSystemPrompt = `You generate competing ways a business scenario could unfold.
Answer with JSON only:
{"scenarios": [{"description": "<one plausible unfolding>", "probability": <0..1>, "variables": {"<name>": "<assumed value>"}, "expected_outcome": "<one sentence>"}]}
Probabilities need not sum to 1.`

// generateVariants 生成最多 maxOutcomes 个情景变体。
// 生成失败时退回到单个等于原始情景、概率 0.5 的变体。
func (s *Simulator) generateVariants(ctx context.Context, scenario string, variables []string, goals []*models.Goal, maxOutcomes int) []*models.SimulationScenario {
	fallback := []*models.SimulationScenario{{Description: scenario, Probability: 0.5}}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scenario: %s\nKey variables: %s\n", scenario, strings.Join(variables, ", "))
	if len(goals) > 0 {
		sb.WriteString("Active goals:\n")
		for _, g := range goals {
			fmt.Fprintf(&sb, "- %s (priority %d)\n", g.Title, g.Priority)
		}
	}
	fmt.Fprintf(&sb, "Generate up to %d variants.", maxOutcomes)

	resp, err := s.llm.GenerateContent(ctx, models.NewTextRequest(sb.String(), generateVariantsSystemPrompt, 0.6, 1024))
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("变体生成失败，退回到基础情景")
		return fallback
	}

	var parsed struct {
		Scenarios []*models.SimulationScenario `json:"scenarios"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil || len(parsed.Scenarios) == 0 {
		s.logger.Warn("变体输出无法解析，退回到基础情景")
		return fallback
	}

	variants := parsed.Scenarios
	if len(variants) > maxOutcomes {
		variants = variants[:maxOutcomes]
	}
	for _, v := range variants {
		if v.Probability < 0 {
			v.Probability = 0
		}
		if v.Probability > 1 {
			v.Probability = 1
		}
	}
	return variants
}

const evaluateOutcomeSystemPrompt = `You evaluate one hypothesized unfolding of a business scenario.
Answer with JSON only:
{"classification": "<positive|negative|mixed|neutral>", "positive_outcomes": ["..."], "negative_outcomes": ["..."],
 "key_uncertainties": ["..."], "recommended": <true|false>, "reasoning": "<2-3 sentences>",
 "time_to_impact": "<free-text estimate>", "affected_goals": ["<goal titles>"]}`

// evaluateVariant 评估单个情景变体：先以变体描述为触发做因果遍历，
// 取置信度最高的链作为证据，再请求一次结构化的结局判断。
// 任何失败都返回错误，由调用方丢弃该变体。
func (s *Simulator) evaluateVariant(ctx context.Context, userID string, variant *models.SimulationScenario, goals []*models.Goal, maxHops int) (*models.SimulationOutcome, error) {
	var bestChain *models.CausalChain
	chains, err := s.chains.Traverse(ctx, userID, variant.Description, maxHops, variantMinConfidence)
	if err != nil {
		// 遍历失败不是致命的：没有因果证据时仍然可以做纯生成式评估。
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("变体因果遍历失败，评估继续")
	} else {
		for _, chain := range chains {
			if bestChain == nil || chain.FinalConfidence > bestChain.FinalConfidence {
				bestChain = chain
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Variant: %s\nProbability: %.2f\n", variant.Description, variant.Probability)
	if variant.ExpectedOutcome != "" {
		fmt.Fprintf(&sb, "Expected outcome hint: %s\n", variant.ExpectedOutcome)
	}
	if len(variant.Variables) > 0 {
		assignments, _ := json.Marshal(variant.Variables)
		fmt.Fprintf(&sb, "Variable assignment: %s\n", assignments)
	}
	if bestChain != nil {
		sb.WriteString("Causal evidence:\n")
		for _, hop := range bestChain.Hops {
			fmt.Fprintf(&sb, "- %s %s %s\n", hop.SourceEntity, hop.Relationship, hop.TargetEntity)
		}
	}
	if len(goals) > 0 {
		sb.WriteString("Goals:\n")
		for _, g := range goals {
			fmt.Fprintf(&sb, "- %s\n", g.Title)
		}
	}

	resp, err := s.llm.GenerateContent(ctx, models.NewTextRequest(sb.String(), evaluateOutcomeSystemPrompt, 0.4, 768))
	if err != nil {
		return nil, fmt.Errorf("outcome generation failed: %w", err)
	}

	var parsed struct {
		Classification   string   `json:"classification"`
		PositiveOutcomes []string `json:"positive_outcomes"`
		NegativeOutcomes []string `json:"negative_outcomes"`
		KeyUncertainties []string `json:"key_uncertainties"`
		Recommended      bool     `json:"recommended"`
		Reasoning        string   `json:"reasoning"`
		TimeToImpact     string   `json:"time_to_impact"`
		AffectedGoals    []string `json:"affected_goals"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	classification := models.OutcomeClass(parsed.Classification)
	switch classification {
	case models.OutcomePositive, models.OutcomeNegative, models.OutcomeMixed, models.OutcomeNeutral:
	default:
		return nil, fmt.Errorf("unknown outcome classification %q", parsed.Classification)
	}

	return &models.SimulationOutcome{
		Scenario:         variant.Description,
		Probability:      variant.Probability,
		Classification:   classification,
		PositiveOutcomes: parsed.PositiveOutcomes,
		NegativeOutcomes: parsed.NegativeOutcomes,
		KeyUncertainties: parsed.KeyUncertainties,
		Recommended:      parsed.Recommended,
		Reasoning:        parsed.Reasoning,
		CausalChain:      bestChain,
		TimeToImpact:     parsed.TimeToImpact,
		AffectedGoals:    parsed.AffectedGoals,
	}, nil
}

// recommend 选出推荐路径：被标记 recommended 的结局中概率最高者胜出；
// 没有任何推荐结局时退回到负面结果最少的结局，并显式提示所有路径都有风险。
func recommend(outcomes []*models.SimulationOutcome) (string, string) {
	if len(outcomes) == 0 {
		return "", "No outcomes were generated, so no path can be recommended."
	}

	var best *models.SimulationOutcome
	for _, o := range outcomes {
		if !o.Recommended {
			continue
		}
		if best == nil || o.Probability > best.Probability {
			best = o
		}
	}
	if best != nil {
		return best.Scenario, best.Reasoning
	}

	least := outcomes[0]
	for _, o := range outcomes[1:] {
		if len(o.NegativeOutcomes) < len(least.NegativeOutcomes) {
			least = o
		}
	}
	reasoning := fmt.Sprintf("No outcome was flagged as clearly recommended; all paths carry risk. %q has the fewest downsides (%d) and is the least risky option.",
		least.Scenario, len(least.NegativeOutcomes))
	return least.Scenario, reasoning
}

// sensitivity 计算每个变量的敏感度：提及该变量的结局占比。
func sensitivity(variables []string, outcomes []*models.SimulationOutcome) map[string]float64 {
	result := make(map[string]float64, len(variables))
	if len(outcomes) == 0 {
		for _, v := range variables {
			result[v] = 0
		}
		return result
	}

	for _, v := range variables {
		needle := strings.ToLower(v)
		count := 0
		for _, o := range outcomes {
			if outcomeMentions(o, needle) {
				count++
			}
		}
		result[v] = float64(count) / float64(len(outcomes))
	}
	return result
}

// outcomeMentions 判断结局的推理或结果列表是否提到了变量。
func outcomeMentions(o *models.SimulationOutcome, needle string) bool {
	if strings.Contains(strings.ToLower(o.Reasoning), needle) {
		return true
	}
	for _, list := range [][]string{o.PositiveOutcomes, o.NegativeOutcomes, o.KeyUncertainties} {
		for _, item := range list {
			if strings.Contains(strings.ToLower(item), needle) {
				return true
			}
		}
	}
	return false
}

// keyInsights 汇总最多 4 条关键洞察：
// 第一条正面结果、第一条负面结果、第一条关键不确定性，以及有利情景占比。
func keyInsights(outcomes []*models.SimulationOutcome) []string {
	if len(outcomes) == 0 {
		return []string{noOutcomeInsight}
	}

	var insights []string
	for _, o := range outcomes {
		if len(o.PositiveOutcomes) > 0 {
			insights = append(insights, "Upside: "+o.PositiveOutcomes[0])
			break
		}
	}
	for _, o := range outcomes {
		if len(o.NegativeOutcomes) > 0 {
			insights = append(insights, "Downside: "+o.NegativeOutcomes[0])
			break
		}
	}
	for _, o := range outcomes {
		if len(o.KeyUncertainties) > 0 {
			insights = append(insights, "Key uncertainty: "+o.KeyUncertainties[0])
			break
		}
	}

	recommended := recommendedCount(outcomes)
	ratio := float64(recommended) / float64(len(outcomes))
	if ratio >= 0.5 {
		insights = append(insights, fmt.Sprintf("%d of %d simulated scenarios look favorable.", recommended, len(outcomes)))
	} else {
		insights = append(insights, fmt.Sprintf("Caution: only %d of %d simulated scenarios look favorable.", recommended, len(outcomes)))
	}

	if len(insights) > maxKeyInsights {
		insights = insights[:maxKeyInsights]
	}
	return insights
}

func recommendedCount(outcomes []*models.SimulationOutcome) int {
	count := 0
	for _, o := range outcomes {
		if o.Recommended {
			count++
		}
	}
	return count
}

// confidence 计算总体置信度：
// min(avg(probability)*0.6 + min(count/3, 0.2) + 推荐占比加成, 1.0)，保留两位小数。
// 零结局时返回固定的低置信度。
func confidence(outcomes []*models.SimulationOutcome) float64 {
	if len(outcomes) == 0 {
		return noOutcomeConfidence
	}

	var probSum float64
	for _, o := range outcomes {
		probSum += o.Probability
	}
	avg := probSum / float64(len(outcomes))

	value := avg * 0.6
	value += math.Min(float64(len(outcomes))/3, 0.2)
	if float64(recommendedCount(outcomes))/float64(len(outcomes)) >= 0.5 {
		value += 0.1
	}
	if value > 1 {
		value = 1
	}
	return math.Round(value*100) / 100
}

// clampParam 在 [1, upper] 范围内钳制请求参数，0 使用缺省值。
func clampParam(value, fallback, upper int) int {
	if value <= 0 {
		return fallback
	}
	if value > upper {
		return upper
	}
	return value
}
