package models

// GoalImpactType 定义了一条洞察对单个目标的作用方式。
type GoalImpactType string

const (
	GoalImpactAccelerates        GoalImpactType = "accelerates"         // 加速目标达成
	GoalImpactBlocks             GoalImpactType = "blocks"              // 阻碍目标达成
	GoalImpactNeutral            GoalImpactType = "neutral"             // 无明显影响
	GoalImpactCreatesOpportunity GoalImpactType = "creates_opportunity" // 衍生新机会
)

// GoalImpact 代表一个 (洞察, 目标) 对的结构化判断。
// 评估失败或输出无法解析时该对被整体省略，以区分 "确认中性" 和 "无法评估"。
type GoalImpact struct {
	GoalID      uint           `json:"goal_id"`
	GoalTitle   string         `json:"goal_title"`
	ImpactScore float64        `json:"impact_score"` // 范围 [0,1]
	ImpactType  GoalImpactType `json:"impact_type"`
	Explanation string         `json:"explanation"`
}

// GoalPressure 汇总了单个目标当前承受的机会/威胁压力。
type GoalPressure struct {
	GoalID     uint             `json:"goal_id"`
	GoalTitle  string           `json:"goal_title"`
	GoalStatus GoalStatus       `json:"goal_status"`
	Insights   []*InsightRecord `json:"insights"`

	// NetPressure = Σ(机会洞察的 combined_score) − Σ(威胁洞察的 combined_score)。
	// 正值表示目标整体被利好推动，负值表示整体受威胁。
	NetPressure      float64 `json:"net_pressure"`
	OpportunityCount int     `json:"opportunity_count"`
	ThreatCount      int     `json:"threat_count"`
}

// GoalImpactSummary 是按需构建的目标压力总览，不做持久化。
type GoalImpactSummary struct {
	Goals                 []*GoalPressure `json:"goals"`
	TotalInsightsAnalyzed int             `json:"total_insights_analyzed"`
	MultiGoalImplications int             `json:"multi_goal_implications"` // affected_goals 数量 ≥2 的洞察数
	ProcessingTimeMs      int64           `json:"processing_time_ms"`
}

// GoalWithInsights 是单个目标及其关联洞察的明细视图。
type GoalWithInsights struct {
	Goal     *Goal            `json:"goal"`
	Insights []*InsightRecord `json:"insights"`
}
