package goalimpact

import (
	"context"
	"fmt"
	"time"

	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/insight"
	"Minerva/backend/go/internal/llm"
	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/fanout"
	"Minerva/backend/go/pkg/logger"
)

// NoGoalPriorityMultiplier 是目标无关洞察的降权系数。
// 映射后 affected_goal_ids 为空的洞察，其综合分乘以该系数被压到列表后部，
// 而不是被删除。这是综合分公式之外唯一允许的事后调整。
const NoGoalPriorityMultiplier = 0.3

// maxGoalsPerMapping 是参与映射与汇总的 active 目标数量上限。
const maxGoalsPerMapping = 20

// Mapper 按单个目标重新评估洞察，并构建目标压力汇总。
type Mapper struct {
	goals       goal.Store
	insights    insight.Store
	llm         llm.LLM
	logger      *logger.Logger
	lookback    time.Duration
	concurrency int
}

// NewMapper 创建一个新的 Mapper。lookback 是汇总的回看窗口。
func NewMapper(goals goal.Store, insights insight.Store, client llm.LLM, log *logger.Logger, lookback time.Duration, concurrency int) *Mapper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Mapper{
		goals:       goals,
		insights:    insights,
		llm:         client,
		logger:      log,
		lookback:    lookback,
		concurrency: concurrency,
	}
}

// pair 是一次待评估的 (洞察, 目标) 组合。
type pair struct {
	implication *models.Implication
	goal        *models.Goal
}

// MapImpact 对每个 (洞察, 目标) 对请求一次结构化判断，并以副作用更新
// 每条洞察的 affected_goal_ids 与降权后的综合分。
// 评估失败或输出无法解析的对被整体省略，以区分"确认中性"与"无法评估"。
func (m *Mapper) MapImpact(ctx context.Context, userID string, implications []*models.Implication) ([]*models.GoalImpact, error) {
	if len(implications) == 0 {
		return []*models.GoalImpact{}, nil
	}

	goals, err := m.goals.ListActiveGoals(ctx, userID, maxGoalsPerMapping)
	if err != nil {
		m.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("读取 active 目标失败，映射返回空结果")
		return []*models.GoalImpact{}, nil
	}
	if len(goals) == 0 {
		return []*models.GoalImpact{}, nil
	}

	pairs := make([]pair, 0, len(implications)*len(goals))
	for _, impl := range implications {
		for _, g := range goals {
			pairs = append(pairs, pair{implication: impl, goal: g})
		}
	}

	results := fanout.Map(ctx, m.concurrency, pairs, func(ctx context.Context, _ int, p pair) (*models.GoalImpact, error) {
		return m.judgePair(ctx, p.implication, p.goal)
	})

	// 按洞察归集非中性影响，重建 affected_goal_ids。
	affectedByImpl := make(map[*models.Implication][]uint, len(implications))
	impacts := make([]*models.GoalImpact, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			m.logger.WithError(models.ErrorInfo{Message: r.Err.Error(), Type: "parse_error"}).
				WithPayload(map[string]interface{}{"goal_id": pairs[i].goal.ID}).
				Warn("目标影响评估失败，该组合被省略")
			continue
		}
		if r.Value == nil {
			continue
		}
		impacts = append(impacts, r.Value)
		if r.Value.ImpactType != models.GoalImpactNeutral {
			impl := pairs[i].implication
			affectedByImpl[impl] = append(affectedByImpl[impl], r.Value.GoalID)
		}
	}

	for _, impl := range implications {
		impl.AffectedGoalIDs = affectedByImpl[impl]
		if len(impl.AffectedGoalIDs) == 0 {
			// 目标无关的信号被降权压后，而不是删除。
			impl.CombinedScore = impl.CombinedScore * NoGoalPriorityMultiplier
		}
	}

	return impacts, nil
}

const judgeSystemPrompt = `You assess how a business insight affects one specific goal.
Answer with JSON only:
{"impact_score": <0..1>, "impact_type": "<accelerates|blocks|neutral|creates_opportunity>", "explanation": "<1-2 sentences>"}`

// judgePair 评估单个 (洞察, 目标) 对。无法解析的回答返回错误，由调用方省略该对。
func (m *Mapper) judgePair(ctx context.Context, impl *models.Implication, g *models.Goal) (*models.GoalImpact, error) {
	prompt := fmt.Sprintf("Insight (%s): %s\nTrigger event: %s\nGoal: %s — %s (priority %d)",
		impl.Type, impl.Content, impl.TriggerEvent, g.Title, g.Description, g.Priority)

	resp, err := m.llm.GenerateContent(ctx, models.NewTextRequest(prompt, judgeSystemPrompt, 0.2, 256))
	if err != nil {
		return nil, fmt.Errorf("goal impact judgment failed: %w", err)
	}

	var parsed struct {
		ImpactScore float64 `json:"impact_score"`
		ImpactType  string  `json:"impact_type"`
		Explanation string  `json:"explanation"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	impactType := models.GoalImpactType(parsed.ImpactType)
	switch impactType {
	case models.GoalImpactAccelerates, models.GoalImpactBlocks, models.GoalImpactNeutral, models.GoalImpactCreatesOpportunity:
	default:
		return nil, fmt.Errorf("unknown impact_type %q", parsed.ImpactType)
	}

	score := parsed.ImpactScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return &models.GoalImpact{
		GoalID:      g.ID,
		GoalTitle:   g.Title,
		ImpactScore: score,
		ImpactType:  impactType,
		Explanation: parsed.Explanation,
	}, nil
}
