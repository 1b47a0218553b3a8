package goalimpact

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/insight"
	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- fakes ---

type fakeGoalStore struct {
	goals []*models.Goal
	err   error
}

func (f *fakeGoalStore) ListActiveGoals(ctx context.Context, userID string, limit int) ([]*models.Goal, error) {
	return f.goals, f.err
}

func (f *fakeGoalStore) GetGoal(ctx context.Context, userID string, goalID uint) (*models.Goal, error) {
	for _, g := range f.goals {
		if g.ID == goalID {
			return g, nil
		}
	}
	return nil, goal.ErrGoalNotFound
}

func (f *fakeGoalStore) CreateGoal(ctx context.Context, g *models.Goal) error {
	f.goals = append(f.goals, g)
	return nil
}

type fakeInsightStore struct {
	records  []*models.InsightRecord
	queryErr error
}

func (f *fakeInsightStore) Insert(ctx context.Context, record *models.InsightRecord) (string, error) {
	f.records = append(f.records, record)
	return record.ID, nil
}

func (f *fakeInsightStore) Query(ctx context.Context, userID string, filter insight.QueryFilter) ([]*models.InsightRecord, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if filter.GoalID == nil {
		return f.records, nil
	}
	var matched []*models.InsightRecord
	for _, r := range f.records {
		if affectsGoal(r, *filter.GoalID) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// scriptedLLM answers each judgment by inspecting the goal title in the prompt.
type scriptedLLM struct {
	// answers maps a goal-title substring to a raw model reply.
	answers map[string]string
	err     error
}

func (f *scriptedLLM) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	prompt := req.Messages[0].Text
	for needle, reply := range f.answers {
		if strings.Contains(prompt, needle) {
			return &models.GenerateContentResponse{Text: reply}, nil
		}
	}
	return &models.GenerateContentResponse{Text: "no idea"}, nil
}

func newTestLogger() *logger.Logger {
	logger.Init(logrus.ErrorLevel)
	return logger.New("test", "", "")
}

func testGoal(id uint, title string, priority int) *models.Goal {
	return &models.Goal{
		Model:    gorm.Model{ID: id},
		UserID:   "user-1",
		Title:    title,
		Priority: priority,
		Status:   models.GoalStatusActive,
	}
}

func testImplication(id string, combined float64) *models.Implication {
	return &models.Implication{
		ID:            id,
		UserID:        "user-1",
		TriggerEvent:  "Pfizer acquires Seagen",
		Content:       "Acquisition expands ADC capacity demand.",
		Type:          models.ImplicationOpportunity,
		CombinedScore: combined,
	}
}

func judgment(score float64, impactType string) string {
	return fmt.Sprintf(`{"impact_score": %v, "impact_type": %q, "explanation": "test"}`, score, impactType)
}

// --- tests ---

func TestMapImpactRebuildsAffectedGoals(t *testing.T) {
	goals := &fakeGoalStore{goals: []*models.Goal{
		testGoal(1, "Grow ADC market share", 4),
		testGoal(2, "Hire account executives", 2),
	}}
	client := &scriptedLLM{answers: map[string]string{
		"Grow ADC market share":   judgment(0.8, "accelerates"),
		"Hire account executives": judgment(0.1, "neutral"),
	}}
	m := NewMapper(goals, &fakeInsightStore{}, client, newTestLogger(), 30*24*time.Hour, 1)

	impl := testImplication("i-1", 0.7)
	impacts, err := m.MapImpact(context.Background(), "user-1", []*models.Implication{impl})
	if err != nil {
		t.Fatalf("MapImpact() error = %v", err)
	}

	if len(impacts) != 2 {
		t.Fatalf("got %d impacts, want 2", len(impacts))
	}
	if len(impl.AffectedGoalIDs) != 1 || impl.AffectedGoalIDs[0] != 1 {
		t.Errorf("AffectedGoalIDs = %v, want [1] (neutral pairs excluded)", impl.AffectedGoalIDs)
	}
	if impl.CombinedScore != 0.7 {
		t.Errorf("CombinedScore = %v, want unchanged 0.7", impl.CombinedScore)
	}
}

func TestMapImpactDeprioritizesGoalFreeInsights(t *testing.T) {
	goals := &fakeGoalStore{goals: []*models.Goal{testGoal(1, "Grow ADC market share", 4)}}
	client := &scriptedLLM{answers: map[string]string{
		"Grow ADC market share": judgment(0.0, "neutral"),
	}}
	m := NewMapper(goals, &fakeInsightStore{}, client, newTestLogger(), 30*24*time.Hour, 1)

	impl := testImplication("i-1", 0.8)
	if _, err := m.MapImpact(context.Background(), "user-1", []*models.Implication{impl}); err != nil {
		t.Fatalf("MapImpact() error = %v", err)
	}

	want := 0.8 * NoGoalPriorityMultiplier
	if math.Abs(impl.CombinedScore-want) > 1e-9 {
		t.Errorf("CombinedScore = %v, want %v (deprioritized, not deleted)", impl.CombinedScore, want)
	}
	if len(impl.AffectedGoalIDs) != 0 {
		t.Errorf("AffectedGoalIDs = %v, want empty", impl.AffectedGoalIDs)
	}
}

func TestMapImpactOmitsUnparseablePairs(t *testing.T) {
	goals := &fakeGoalStore{goals: []*models.Goal{testGoal(1, "Grow ADC market share", 4)}}
	// The scripted default reply carries no JSON at all.
	m := NewMapper(goals, &fakeInsightStore{}, &scriptedLLM{}, newTestLogger(), 30*24*time.Hour, 1)

	impl := testImplication("i-1", 0.6)
	impacts, err := m.MapImpact(context.Background(), "user-1", []*models.Implication{impl})
	if err != nil {
		t.Fatalf("MapImpact() error = %v, want nil (pair omission is not fatal)", err)
	}
	if len(impacts) != 0 {
		t.Errorf("got %d impacts, want 0 (unparseable pair omitted)", len(impacts))
	}
}

func TestMapImpactRejectsUnknownImpactType(t *testing.T) {
	goals := &fakeGoalStore{goals: []*models.Goal{testGoal(1, "Grow ADC market share", 4)}}
	client := &scriptedLLM{answers: map[string]string{
		"Grow ADC market share": judgment(0.5, "transforms"),
	}}
	m := NewMapper(goals, &fakeInsightStore{}, client, newTestLogger(), 30*24*time.Hour, 1)

	impacts, err := m.MapImpact(context.Background(), "user-1", []*models.Implication{testImplication("i-1", 0.6)})
	if err != nil {
		t.Fatalf("MapImpact() error = %v", err)
	}
	if len(impacts) != 0 {
		t.Errorf("got %d impacts, want 0 for an out-of-enum impact type", len(impacts))
	}
}

func TestSummaryNetPressure(t *testing.T) {
	goals := &fakeGoalStore{goals: []*models.Goal{
		testGoal(1, "Grow ADC market share", 4),
		testGoal(2, "Close Lonza CDMO deal", 5),
	}}
	insights := &fakeInsightStore{records: []*models.InsightRecord{
		{ID: "r1", Classification: models.ImplicationOpportunity, CombinedScore: 0.8, AffectedGoals: []uint{1}},
		{ID: "r2", Classification: models.ImplicationThreat, CombinedScore: 0.8, AffectedGoals: []uint{1}},
		{ID: "r3", Classification: models.ImplicationOpportunity, CombinedScore: 0.8, AffectedGoals: []uint{2}},
		{ID: "r4", Classification: models.ImplicationOpportunity, CombinedScore: 0.7, AffectedGoals: []uint{2}},
		{ID: "r5", Classification: models.ImplicationThreat, CombinedScore: 0.5, AffectedGoals: []uint{1, 2}},
	}}
	m := NewMapper(goals, insights, &scriptedLLM{}, newTestLogger(), 30*24*time.Hour, 1)

	summary, err := m.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if summary.TotalInsightsAnalyzed != 5 {
		t.Errorf("TotalInsightsAnalyzed = %d, want 5", summary.TotalInsightsAnalyzed)
	}
	if summary.MultiGoalImplications != 1 {
		t.Errorf("MultiGoalImplications = %d, want 1", summary.MultiGoalImplications)
	}
	if len(summary.Goals) != 2 {
		t.Fatalf("got %d goal pressures, want 2", len(summary.Goals))
	}

	// Goal 1: +0.8 (opportunity) -0.8 (threat) -0.5 (shared threat) = -0.5.
	g1 := summary.Goals[0]
	if math.Abs(g1.NetPressure-(-0.5)) > 1e-9 {
		t.Errorf("goal 1 NetPressure = %v, want -0.5", g1.NetPressure)
	}
	if g1.OpportunityCount != 1 || g1.ThreatCount != 2 {
		t.Errorf("goal 1 counts = (%d opp, %d threat), want (1, 2)", g1.OpportunityCount, g1.ThreatCount)
	}

	// Goal 2: +0.8 +0.7 -0.5 = 1.0.
	g2 := summary.Goals[1]
	if math.Abs(g2.NetPressure-1.0) > 1e-9 {
		t.Errorf("goal 2 NetPressure = %v, want 1.0", g2.NetPressure)
	}
	if g2.OpportunityCount != 2 || g2.ThreatCount != 1 {
		t.Errorf("goal 2 counts = (%d opp, %d threat), want (2, 1)", g2.OpportunityCount, g2.ThreatCount)
	}
}

func TestSummaryBalancedPressureIsZero(t *testing.T) {
	goals := &fakeGoalStore{goals: []*models.Goal{testGoal(1, "Grow ADC market share", 4)}}
	insights := &fakeInsightStore{records: []*models.InsightRecord{
		{ID: "r1", Classification: models.ImplicationOpportunity, CombinedScore: 0.8, AffectedGoals: []uint{1}},
		{ID: "r2", Classification: models.ImplicationThreat, CombinedScore: 0.8, AffectedGoals: []uint{1}},
	}}
	m := NewMapper(goals, insights, &scriptedLLM{}, newTestLogger(), 30*24*time.Hour, 1)

	summary, err := m.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if p := summary.Goals[0].NetPressure; math.Abs(p) > 1e-9 {
		t.Errorf("NetPressure = %v, want 0 (opposing signals cancel)", p)
	}
}

func TestGoalInsightsNotFound(t *testing.T) {
	m := NewMapper(&fakeGoalStore{}, &fakeInsightStore{}, &scriptedLLM{}, newTestLogger(), 30*24*time.Hour, 1)

	_, err := m.GoalInsights(context.Background(), "user-1", 42, 10)
	if !errors.Is(err, goal.ErrGoalNotFound) {
		t.Errorf("GoalInsights() error = %v, want ErrGoalNotFound", err)
	}
}

func TestGoalInsightsDegradesOnQueryFailure(t *testing.T) {
	goals := &fakeGoalStore{goals: []*models.Goal{testGoal(1, "Grow ADC market share", 4)}}
	insights := &fakeInsightStore{queryErr: errors.New("mongo down")}
	m := NewMapper(goals, insights, &scriptedLLM{}, newTestLogger(), 30*24*time.Hour, 1)

	result, err := m.GoalInsights(context.Background(), "user-1", 1, 10)
	if err != nil {
		t.Fatalf("GoalInsights() error = %v, want nil (insight query is fail-soft)", err)
	}
	if result.Goal == nil || result.Goal.ID != 1 {
		t.Errorf("Goal = %v, want goal 1", result.Goal)
	}
	if result.Insights == nil || len(result.Insights) != 0 {
		t.Errorf("Insights = %v, want empty non-nil slice", result.Insights)
	}
}
