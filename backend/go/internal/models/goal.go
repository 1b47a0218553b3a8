package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GoalStatus 定义了目标的生命周期状态。
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"    // 进行中，参与洞察分析
	GoalStatusPaused    GoalStatus = "paused"    // 暂停，不参与分析
	GoalStatusAchieved  GoalStatus = "achieved"  // 已达成
	GoalStatusAbandoned GoalStatus = "abandoned" // 已放弃
)

// Goal 代表用户的一个商业目标（例如 "Close Lonza CDMO deal"）。
// 只有 active 状态的目标参与因果分析。
type Goal struct {
	gorm.Model

	UserID      string     `gorm:"index;not null" json:"user_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"size:2048" json:"description"`
	Priority    int        `gorm:"default:3" json:"priority"` // 优先级，1（最低）到 5（最高）
	Status      GoalStatus `gorm:"type:varchar(20);default:'active';not null" json:"status"`
	Category    string     `gorm:"size:64" json:"category"`

	// Metadata 存放来自 CRM 的附加属性（客户、金额、阶段等），结构不固定。
	Metadata datatypes.JSONMap `json:"metadata,omitempty"`
}
