package goalimpact

import (
	"context"
	"time"

	"Minerva/backend/go/internal/insight"
	"Minerva/backend/go/internal/models"
)

// Summary 为用户的每个 active 目标构建压力汇总。
// 回看窗口内的持久化洞察按其存储时的分类计入机会/威胁，
// 净压力是机会综合分之和减去威胁综合分之和。
func (m *Mapper) Summary(ctx context.Context, userID string) (*models.GoalImpactSummary, error) {
	start := time.Now()

	goals, err := m.goals.ListActiveGoals(ctx, userID, maxGoalsPerMapping)
	if err != nil {
		return nil, err
	}

	records, err := m.insights.Query(ctx, userID, insight.QueryFilter{
		Since: start.Add(-m.lookback),
	})
	if err != nil {
		m.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("读取洞察失败，汇总按零条洞察计算")
		records = nil
	}

	summary := &models.GoalImpactSummary{
		Goals:                 make([]*models.GoalPressure, 0, len(goals)),
		TotalInsightsAnalyzed: len(records),
	}
	for _, record := range records {
		if len(record.AffectedGoals) >= 2 {
			summary.MultiGoalImplications++
		}
	}

	for _, g := range goals {
		pressure := &models.GoalPressure{
			GoalID:     g.ID,
			GoalTitle:  g.Title,
			GoalStatus: g.Status,
			Insights:   []*models.InsightRecord{},
		}
		for _, record := range records {
			if !affectsGoal(record, g.ID) {
				continue
			}
			pressure.Insights = append(pressure.Insights, record)
			switch record.Classification {
			case models.ImplicationOpportunity:
				pressure.OpportunityCount++
				pressure.NetPressure += record.CombinedScore
			case models.ImplicationThreat:
				pressure.ThreatCount++
				pressure.NetPressure -= record.CombinedScore
			}
		}
		summary.Goals = append(summary.Goals, pressure)
	}

	summary.ProcessingTimeMs = time.Since(start).Milliseconds()
	return summary, nil
}

// GoalInsights 返回单个目标及其关联洞察的明细。
// 目标不存在时返回 goal.ErrGoalNotFound；洞察读取失败降级为空列表。
func (m *Mapper) GoalInsights(ctx context.Context, userID string, goalID uint, limit int) (*models.GoalWithInsights, error) {
	g, err := m.goals.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	records, err := m.insights.Query(ctx, userID, insight.QueryFilter{
		GoalID: &goalID,
		Limit:  limit,
	})
	if err != nil {
		m.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_error"}).Warn("读取目标洞察失败，返回空列表")
		records = nil
	}
	if records == nil {
		records = []*models.InsightRecord{}
	}

	return &models.GoalWithInsights{Goal: g, Insights: records}, nil
}

func affectsGoal(record *models.InsightRecord, goalID uint) bool {
	for _, id := range record.AffectedGoals {
		if id == goalID {
			return true
		}
	}
	return false
}
