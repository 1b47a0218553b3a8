package models

import "time"

// ImplicationType 定义了因果链对用户目标的影响方向。
type ImplicationType string

const (
	ImplicationOpportunity ImplicationType = "opportunity" // 机会
	ImplicationThreat      ImplicationType = "threat"      // 威胁
	ImplicationNeutral     ImplicationType = "neutral"     // 中性
)

// Implication 代表一条经过评分和分类的因果判断：
// 某个触发事件经由一条因果链，对用户的一个或多个目标产生影响。
// 所有分数字段在返回前都会被钳制到 [0,1]。
type Implication struct {
	ID           string          `json:"id"`            // 洞察唯一ID（UUID），同时用作时间范围富化的关联ID
	UserID       string          `json:"user_id"`
	TriggerEvent string          `json:"trigger_event"` // 触发事件原文
	Content      string          `json:"content"`       // 2-3 句自然语言解释
	Type         ImplicationType `json:"type"`

	ImpactScore   float64 `json:"impact_score"`   // 影响强度
	Confidence    float64 `json:"confidence"`     // 等于因果链的 final_confidence
	Urgency       float64 `json:"urgency"`        // 由 time_to_impact 提示解析得到
	CombinedScore float64 `json:"combined_score"` // 加权综合分，排序与过滤依据

	CausalChain        *CausalChain `json:"causal_chain"`                  // 产生该判断的因果链快照
	AffectedGoalIDs    []uint       `json:"affected_goal_ids"`             // 受影响目标ID（仅含本次分析的目标集合中的ID）
	RecommendedActions []string     `json:"recommended_actions,omitempty"` // 最多 3 条建议行动
	TimeHorizon        string       `json:"time_horizon,omitempty"`        // 时间范围桶（short/medium/long term），可为空
	TimeToImpact       string       `json:"time_to_impact,omitempty"`      // 影响时间提示（自由文本），可为空
	CreatedAt          time.Time    `json:"created_at"`
}
