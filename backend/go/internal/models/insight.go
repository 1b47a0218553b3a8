package models

import "time"

// InsightKind 区分持久化洞察的来源。
type InsightKind string

const (
	InsightKindImplication InsightKind = "implication" // 来自事件分析
	InsightKindSimulation  InsightKind = "simulation"  // 来自情景模拟
)

// InsightRecord 代表一条追加写入 MongoDB 的持久化洞察。
// 写入由调用方显式触发（save_insight），核心流水线只负责计算。
type InsightRecord struct {
	ID             string          `bson:"_id" json:"id"` // UUID
	UserID         string          `bson:"user_id" json:"user_id"`
	Kind           InsightKind     `bson:"kind" json:"kind"`
	TriggerEvent   string          `bson:"trigger_event" json:"trigger_event"`
	Content        string          `bson:"content" json:"content"`
	Classification ImplicationType `bson:"classification" json:"classification"`
	CombinedScore  float64         `bson:"combined_score" json:"combined_score"`
	AffectedGoals  []uint          `bson:"affected_goals" json:"affected_goals"`
	TimeHorizon    string          `bson:"time_horizon,omitempty" json:"time_horizon,omitempty"`
	Payload        interface{}     `bson:"payload,omitempty" json:"payload,omitempty"` // 完整的 Implication 或 SimulationResult
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
}
