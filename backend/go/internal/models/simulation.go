package models

// OutcomeClass 定义了单个模拟结局的整体倾向。
type OutcomeClass string

const (
	OutcomePositive OutcomeClass = "positive"
	OutcomeNegative OutcomeClass = "negative"
	OutcomeMixed    OutcomeClass = "mixed"
	OutcomeNeutral  OutcomeClass = "neutral"
)

// SimulationRequest 是一次完整情景模拟的输入。
type SimulationRequest struct {
	Scenario      string   `json:"scenario" binding:"required"`  // "what-if" 问题原文
	Variables     []string `json:"variables,omitempty"`          // 可选，调用方指定的关键变量
	MaxOutcomes   int      `json:"max_outcomes,omitempty"`       // 生成的情景变体数量上限，被钳制到 ≤5
	MaxHops       int      `json:"max_hops,omitempty"`           // 因果遍历跳数上限，被钳制到 ≤5
	RelatedGoalID uint     `json:"related_goal_id,omitempty"`    // 可选，置顶到上下文目标列表前端的目标
}

// SimulationScenario 是一次模拟运行内部生成并消费的情景变体，生成后不可变。
type SimulationScenario struct {
	Description     string            `json:"description"`
	Probability     float64           `json:"probability"` // 范围 [0,1]
	Variables       map[string]string `json:"variables,omitempty"`
	ExpectedOutcome string            `json:"expected_outcome,omitempty"`
}

// SimulationOutcome 是对一个情景变体评估后的结局。
type SimulationOutcome struct {
	Scenario         string       `json:"scenario"` // 变体描述
	Probability      float64      `json:"probability"`
	Classification   OutcomeClass `json:"classification"`
	PositiveOutcomes []string     `json:"positive_outcomes,omitempty"`
	NegativeOutcomes []string     `json:"negative_outcomes,omitempty"`
	KeyUncertainties []string     `json:"key_uncertainties,omitempty"`
	Recommended      bool         `json:"recommended"`
	Reasoning        string       `json:"reasoning"`
	CausalChain      *CausalChain `json:"causal_chain,omitempty"` // 该变体的最高置信度因果链快照
	TimeToImpact     string       `json:"time_to_impact,omitempty"`
	AffectedGoals    []string     `json:"affected_goals,omitempty"`
}

// SimulationResult 是一次完整模拟的顶层返回值，可由调用方选择性持久化为洞察。
type SimulationResult struct {
	Scenario         string               `json:"scenario"`      // 原始问题
	ScenarioType     string               `json:"scenario_type"` // 例如 "what_if"
	Outcomes         []*SimulationOutcome `json:"outcomes"`
	RecommendedPath  string               `json:"recommended_path"`
	Reasoning        string               `json:"reasoning"`
	Sensitivity      map[string]float64   `json:"sensitivity"` // 变量 -> 提及占比，范围 [0,1]
	Confidence       float64              `json:"confidence"`  // 范围 [0,1]，保留两位小数
	KeyInsights      []string             `json:"key_insights"` // 最多 4 条
	ProcessingTimeMs int64                `json:"processing_time_ms"`
}

// QuickSimulationResponse 是轻量问答式模拟的返回值，不经过因果遍历。
type QuickSimulationResponse struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`     // 2-3 段
	KeyPoints  []string `json:"key_points"` // 2-3 条要点
	Confidence float64  `json:"confidence"`
}
