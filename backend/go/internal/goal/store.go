package goal

import (
	"context"
	"errors"
	"fmt"

	"Minerva/backend/go/internal/models"

	"gorm.io/gorm"
)

// ErrGoalNotFound 表示请求的目标对该用户不存在。
// 这是洞察服务唯一向调用方硬性暴露的错误（调用方编程错误，而非瞬态故障）。
var ErrGoalNotFound = errors.New("goal not found")

// Store 定义了目标存储的读取契约。目标的完整 CRUD 归外部 CRM 同步服务所有，
// 洞察流水线只消费 active 状态的目标。
type Store interface {
	ListActiveGoals(ctx context.Context, userID string, limit int) ([]*models.Goal, error)
	GetGoal(ctx context.Context, userID string, goalID uint) (*models.Goal, error)
	CreateGoal(ctx context.Context, goal *models.Goal) error
}

// MySQLStore 是基于 GORM/MySQL 的 Store 实现。
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore 创建一个新的 MySQLStore，并自动迁移目标表。
func NewMySQLStore(db *gorm.DB) (*MySQLStore, error) {
	if err := db.AutoMigrate(&models.Goal{}); err != nil {
		return nil, fmt.Errorf("迁移目标表失败: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// ListActiveGoals 按优先级从高到低返回用户的 active 目标，最多 limit 条。
func (s *MySQLStore) ListActiveGoals(ctx context.Context, userID string, limit int) ([]*models.Goal, error) {
	var goals []*models.Goal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.GoalStatusActive).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("查询 active 目标失败: %w", err)
	}
	return goals, nil
}

// GetGoal 通过ID查找用户的目标；不存在时返回 ErrGoalNotFound。
func (s *MySQLStore) GetGoal(ctx context.Context, userID string, goalID uint) (*models.Goal, error) {
	var goal models.Goal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&goal, goalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("查询目标失败: %w", err)
	}
	return &goal, nil
}

// CreateGoal 创建一个新目标。
func (s *MySQLStore) CreateGoal(ctx context.Context, goal *models.Goal) error {
	if goal.Status == "" {
		goal.Status = models.GoalStatusActive
	}
	return s.db.WithContext(ctx).Create(goal).Error
}
