package service

import (
	"context"
	"time"

	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/insight"
	"Minerva/backend/go/internal/insight_service/analyzer"
	"Minerva/backend/go/internal/insight_service/goalimpact"
	"Minerva/backend/go/internal/insight_service/publisher"
	"Minerva/backend/go/internal/insight_service/simulation"
	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// 操作名常量，用于活动日志。
const (
	OpAnalyzeEvent      = "analyze_event"
	OpMapGoalImpact     = "map_goal_impact"
	OpGoalImpactSummary = "goal_impact_summary"
	OpGoalInsights      = "goal_insights"
	OpSimulate          = "simulate"
	OpQuickSimulate     = "quick_simulate"
	OpSaveInsight       = "save_insight"
)

// InsightService 是洞察流水线的编排门面：
// 事件分析、目标影响映射、情景模拟与洞察持久化。
// 活动日志通过 Kafka 尽力而为地旁路发布，不影响主流程结果。
type InsightService struct {
	analyzer  *analyzer.Analyzer
	mapper    *goalimpact.Mapper
	simulator *simulation.Simulator
	goals     goal.Store
	insights  insight.Store
	publisher *publisher.ActivityPublisher
	logger    *logger.Logger
}

// NewInsightService 创建一个新的 InsightService。
func NewInsightService(an *analyzer.Analyzer, mapper *goalimpact.Mapper, sim *simulation.Simulator, goals goal.Store, insights insight.Store, pub *publisher.ActivityPublisher, log *logger.Logger) *InsightService {
	return &InsightService{
		analyzer:  an,
		mapper:    mapper,
		simulator: sim,
		goals:     goals,
		insights:  insights,
		publisher: pub,
		logger:    log,
	}
}

// CreateGoal 登记一个新的商业目标。未指定状态的目标默认为 active。
func (s *InsightService) CreateGoal(ctx context.Context, g *models.Goal) error {
	if g.Status == "" {
		g.Status = models.GoalStatusActive
	}
	return s.goals.CreateGoal(ctx, g)
}

// AnalyzeEvent 对一个触发事件运行完整的因果推断流水线，
// 返回按综合分降序排列的判断列表。
func (s *InsightService) AnalyzeEvent(ctx context.Context, userID string, req analyzer.AnalyzeRequest) ([]*models.Implication, error) {
	correlationID := uuid.New().String()
	s.logActivity(correlationID, userID, OpAnalyzeEvent, models.ActivityStarted, req.Event, nil)

	implications, err := s.analyzer.Analyze(ctx, userID, req)
	if err != nil {
		s.logActivity(correlationID, userID, OpAnalyzeEvent, models.ActivityError, err.Error(), nil)
		return nil, err
	}

	s.logActivity(correlationID, userID, OpAnalyzeEvent, statusFor(len(implications)), "", map[string]interface{}{
		"implications": len(implications),
	})
	return implications, nil
}

// MapGoalImpact 将一组判断映射到用户的 active 目标上。
func (s *InsightService) MapGoalImpact(ctx context.Context, userID string, implications []*models.Implication) ([]*models.GoalImpact, error) {
	correlationID := uuid.New().String()
	s.logActivity(correlationID, userID, OpMapGoalImpact, models.ActivityStarted, "", map[string]interface{}{
		"implications": len(implications),
	})

	impacts, err := s.mapper.MapImpact(ctx, userID, implications)
	if err != nil {
		s.logActivity(correlationID, userID, OpMapGoalImpact, models.ActivityError, err.Error(), nil)
		return nil, err
	}

	s.logActivity(correlationID, userID, OpMapGoalImpact, models.ActivityFinished, "", map[string]interface{}{
		"impacts": len(impacts),
	})
	return impacts, nil
}

// GoalImpactSummary 聚合近期洞察对每个 active 目标的净压力。
func (s *InsightService) GoalImpactSummary(ctx context.Context, userID string) (*models.GoalImpactSummary, error) {
	return s.mapper.Summary(ctx, userID)
}

// GoalInsights 返回单个目标及影响它的近期洞察。
// 目标不存在时返回 goal.ErrGoalNotFound。
func (s *InsightService) GoalInsights(ctx context.Context, userID string, goalID uint, limit int) (*models.GoalWithInsights, error) {
	return s.mapper.GoalInsights(ctx, userID, goalID, limit)
}

// Simulate 运行完整的情景模拟流水线。
func (s *InsightService) Simulate(ctx context.Context, userID string, req models.SimulationRequest) (*models.SimulationResult, error) {
	correlationID := uuid.New().String()
	s.logActivity(correlationID, userID, OpSimulate, models.ActivityStarted, req.Scenario, nil)

	result, err := s.simulator.Simulate(ctx, userID, req)
	if err != nil {
		s.logActivity(correlationID, userID, OpSimulate, models.ActivityError, err.Error(), nil)
		return nil, err
	}

	s.logActivity(correlationID, userID, OpSimulate, statusFor(len(result.Outcomes)), "", map[string]interface{}{
		"outcomes":   len(result.Outcomes),
		"confidence": result.Confidence,
	})
	return result, nil
}

// QuickSimulate 运行轻量问答式模拟。
func (s *InsightService) QuickSimulate(ctx context.Context, userID, question string) (*models.QuickSimulationResponse, error) {
	correlationID := uuid.New().String()
	s.logActivity(correlationID, userID, OpQuickSimulate, models.ActivityStarted, question, nil)

	resp, err := s.simulator.QuickSimulate(ctx, userID, question)
	if err != nil {
		s.logActivity(correlationID, userID, OpQuickSimulate, models.ActivityError, err.Error(), nil)
		return nil, err
	}

	s.logActivity(correlationID, userID, OpQuickSimulate, models.ActivityFinished, "", nil)
	return resp, nil
}

// SaveImplication 将一条判断持久化为洞察记录，返回记录ID。
func (s *InsightService) SaveImplication(ctx context.Context, impl *models.Implication) (string, error) {
	record := &models.InsightRecord{
		ID:             impl.ID,
		UserID:         impl.UserID,
		Kind:           models.InsightKindImplication,
		TriggerEvent:   impl.TriggerEvent,
		Content:        impl.Content,
		Classification: impl.Type,
		CombinedScore:  impl.CombinedScore,
		AffectedGoals:  impl.AffectedGoalIDs,
		TimeHorizon:    impl.TimeHorizon,
		Payload:        impl,
		CreatedAt:      time.Now(),
	}
	return s.saveInsight(ctx, record)
}

// SaveSimulation 将一次模拟结果持久化为洞察记录，返回记录ID。
// 总体分类由正负结局计数推导。
func (s *InsightService) SaveSimulation(ctx context.Context, userID string, result *models.SimulationResult) (string, error) {
	record := &models.InsightRecord{
		ID:             uuid.New().String(),
		UserID:         userID,
		Kind:           models.InsightKindSimulation,
		TriggerEvent:   result.Scenario,
		Content:        result.Reasoning,
		Classification: simulation.Classify(result),
		CombinedScore:  result.Confidence,
		Payload:        result,
		CreatedAt:      time.Now(),
	}
	return s.saveInsight(ctx, record)
}

func (s *InsightService) saveInsight(ctx context.Context, record *models.InsightRecord) (string, error) {
	id, err := s.insights.Insert(ctx, record)
	if err != nil {
		s.logActivity(record.ID, record.UserID, OpSaveInsight, models.ActivityError, err.Error(), nil)
		return "", err
	}
	s.logActivity(record.ID, record.UserID, OpSaveInsight, models.ActivityFinished, "", map[string]interface{}{
		"kind": record.Kind,
	})
	return id, nil
}

// logActivity 发布一条尽力而为的活动日志。
func (s *InsightService) logActivity(correlationID, userID, operation string, status models.ActivityStatus, message string, content interface{}) {
	s.publisher.Publish(models.ActivityLogEntry{
		CorrelationID: correlationID,
		UserID:        userID,
		Operation:     operation,
		Timestamp:     time.Now(),
		Status:        status,
		Message:       message,
		Content:       content,
	})
}

// statusFor 把空结果标记为 DEGRADED，方便从活动日志观测降级情况。
func statusFor(count int) models.ActivityStatus {
	if count == 0 {
		return models.ActivityDegraded
	}
	return models.ActivityFinished
}
