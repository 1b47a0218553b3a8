package simulation

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"Minerva/backend/go/internal/goal"
	"Minerva/backend/go/internal/insight"
	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- fakes ---

type fakeChainProvider struct {
	chains []*models.CausalChain
	err    error
}

func (f *fakeChainProvider) Traverse(ctx context.Context, userID, triggerEvent string, maxHops int, minConfidence float64) ([]*models.CausalChain, error) {
	return f.chains, f.err
}

type fakeGoalStore struct {
	goals []*models.Goal
}

func (f *fakeGoalStore) ListActiveGoals(ctx context.Context, userID string, limit int) ([]*models.Goal, error) {
	return f.goals, nil
}

func (f *fakeGoalStore) GetGoal(ctx context.Context, userID string, goalID uint) (*models.Goal, error) {
	return nil, goal.ErrGoalNotFound
}

func (f *fakeGoalStore) CreateGoal(ctx context.Context, g *models.Goal) error {
	return nil
}

type fakeInsightStore struct {
	records []*models.InsightRecord
}

func (f *fakeInsightStore) Insert(ctx context.Context, record *models.InsightRecord) (string, error) {
	return record.ID, nil
}

func (f *fakeInsightStore) Query(ctx context.Context, userID string, filter insight.QueryFilter) ([]*models.InsightRecord, error) {
	return f.records, nil
}

// scriptedLLM dispatches on the system instruction so one fake can serve the
// whole pipeline: variable extraction, variant generation, and evaluation.
type scriptedLLM struct {
	variablesReply string
	variantsReply  string
	evaluateReply  string
	quickReply     string
	err            error
}

func (f *scriptedLLM) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	instruction := req.SystemInstruction
	switch {
	case strings.Contains(instruction, "key variables"):
		return &models.GenerateContentResponse{Text: f.variablesReply}, nil
	case strings.Contains(instruction, "could unfold"):
		return &models.GenerateContentResponse{Text: f.variantsReply}, nil
	case strings.Contains(instruction, "hypothesized unfolding"):
		return &models.GenerateContentResponse{Text: f.evaluateReply}, nil
	case strings.Contains(instruction, "fast qualitative answer"):
		return &models.GenerateContentResponse{Text: f.quickReply}, nil
	}
	return nil, errors.New("unexpected request")
}

func newTestLogger() *logger.Logger {
	logger.Init(logrus.ErrorLevel)
	return logger.New("test", "", "")
}

func outcome(scenario string, probability float64, recommended bool, class models.OutcomeClass) *models.SimulationOutcome {
	return &models.SimulationOutcome{
		Scenario:       scenario,
		Probability:    probability,
		Recommended:    recommended,
		Classification: class,
		Reasoning:      "reasoning for " + scenario,
	}
}

// --- unit tests on the aggregation helpers ---

func TestRecommendPrefersRecommendedHighestProbability(t *testing.T) {
	outcomes := []*models.SimulationOutcome{
		outcome("path A", 0.6, true, models.OutcomePositive),
		outcome("path B", 0.5, false, models.OutcomeMixed),
		outcome("path C", 0.4, false, models.OutcomeNegative),
	}

	path, reasoning := recommend(outcomes)
	if path != "path A" {
		t.Errorf("recommended path = %q, want %q", path, "path A")
	}
	if reasoning == "" {
		t.Error("reasoning must not be empty")
	}
}

func TestRecommendPicksHighestProbabilityAmongRecommended(t *testing.T) {
	outcomes := []*models.SimulationOutcome{
		outcome("path A", 0.3, true, models.OutcomePositive),
		outcome("path B", 0.7, true, models.OutcomePositive),
	}
	if path, _ := recommend(outcomes); path != "path B" {
		t.Errorf("recommended path = %q, want %q", path, "path B")
	}
}

func TestRecommendFallsBackToFewestDownsides(t *testing.T) {
	risky := outcome("risky path", 0.8, false, models.OutcomeNegative)
	risky.NegativeOutcomes = []string{"loss", "churn", "delay"}
	safer := outcome("safer path", 0.4, false, models.OutcomeMixed)
	safer.NegativeOutcomes = []string{"delay"}

	path, reasoning := recommend([]*models.SimulationOutcome{risky, safer})
	if path != "safer path" {
		t.Errorf("recommended path = %q, want %q", path, "safer path")
	}
	if !strings.Contains(reasoning, "risk") {
		t.Errorf("hedged reasoning should mention risk, got %q", reasoning)
	}
}

func TestRecommendNoOutcomes(t *testing.T) {
	path, reasoning := recommend(nil)
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if reasoning == "" {
		t.Error("reasoning must explain that nothing could be recommended")
	}
}

func TestConfidenceFormula(t *testing.T) {
	// avg(0.6, 0.5, 0.4) = 0.5; 0.5*0.6 = 0.3; count bonus capped at 0.2;
	// 1 of 3 recommended is below the 0.5 ratio, so no ratio bonus.
	outcomes := []*models.SimulationOutcome{
		outcome("a", 0.6, true, models.OutcomePositive),
		outcome("b", 0.5, false, models.OutcomeMixed),
		outcome("c", 0.4, false, models.OutcomeNegative),
	}
	if got := confidence(outcomes); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("confidence = %v, want 0.5", got)
	}
}

func TestConfidenceRatioBonus(t *testing.T) {
	outcomes := []*models.SimulationOutcome{
		outcome("a", 0.6, true, models.OutcomePositive),
		outcome("b", 0.5, true, models.OutcomePositive),
		outcome("c", 0.4, false, models.OutcomeNegative),
	}
	// Same base as above plus the 0.1 ratio bonus.
	if got := confidence(outcomes); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("confidence = %v, want 0.6", got)
	}
}

func TestConfidenceStaysInRange(t *testing.T) {
	outcomes := []*models.SimulationOutcome{
		outcome("a", 1.0, true, models.OutcomePositive),
		outcome("b", 1.0, true, models.OutcomePositive),
		outcome("c", 1.0, true, models.OutcomePositive),
	}
	got := confidence(outcomes)
	if got < 0 || got > 1 {
		t.Errorf("confidence = %v, want within [0,1]", got)
	}
}

func TestConfidenceNoOutcomes(t *testing.T) {
	if got := confidence(nil); got != noOutcomeConfidence {
		t.Errorf("confidence = %v, want %v", got, noOutcomeConfidence)
	}
}

func TestKeyInsightsNoOutcomes(t *testing.T) {
	insights := keyInsights(nil)
	if len(insights) != 1 || insights[0] != noOutcomeInsight {
		t.Errorf("keyInsights(nil) = %v, want the fixed inconclusive message", insights)
	}
}

func TestKeyInsightsFavorableRatio(t *testing.T) {
	favorable := []*models.SimulationOutcome{
		outcome("a", 0.6, true, models.OutcomePositive),
		outcome("b", 0.5, true, models.OutcomePositive),
		outcome("c", 0.4, false, models.OutcomeNegative),
	}
	insights := keyInsights(favorable)
	if len(insights) == 0 || len(insights) > maxKeyInsights {
		t.Fatalf("got %d insights, want 1..%d", len(insights), maxKeyInsights)
	}
	last := insights[len(insights)-1]
	if !strings.Contains(last, "2 of 3") || strings.Contains(last, "Caution") {
		t.Errorf("favorable ratio message = %q, want positive phrasing with 2 of 3", last)
	}

	unfavorable := []*models.SimulationOutcome{
		outcome("a", 0.6, true, models.OutcomePositive),
		outcome("b", 0.5, false, models.OutcomeNegative),
		outcome("c", 0.4, false, models.OutcomeNegative),
	}
	insights = keyInsights(unfavorable)
	last = insights[len(insights)-1]
	if !strings.Contains(last, "Caution") {
		t.Errorf("unfavorable ratio message = %q, want cautionary phrasing", last)
	}
}

func TestSensitivityCountsMentions(t *testing.T) {
	a := outcome("a", 0.6, true, models.OutcomePositive)
	a.Reasoning = "timing is everything here"
	b := outcome("b", 0.4, false, models.OutcomeNegative)
	b.NegativeOutcomes = []string{"slow market_response hurts the launch"}

	result := sensitivity([]string{"timing", "market_response", "competition"}, []*models.SimulationOutcome{a, b})
	if result["timing"] != 0.5 {
		t.Errorf("sensitivity[timing] = %v, want 0.5", result["timing"])
	}
	if result["market_response"] != 0.5 {
		t.Errorf("sensitivity[market_response] = %v, want 0.5", result["market_response"])
	}
	if result["competition"] != 0 {
		t.Errorf("sensitivity[competition] = %v, want 0", result["competition"])
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		classes []models.OutcomeClass
		want    models.ImplicationType
	}{
		{[]models.OutcomeClass{models.OutcomePositive, models.OutcomePositive, models.OutcomeNegative}, models.ImplicationOpportunity},
		{[]models.OutcomeClass{models.OutcomeNegative, models.OutcomeNegative, models.OutcomePositive}, models.ImplicationThreat},
		{[]models.OutcomeClass{models.OutcomePositive, models.OutcomeNegative}, models.ImplicationNeutral},
		{[]models.OutcomeClass{models.OutcomeMixed, models.OutcomeNeutral}, models.ImplicationNeutral},
		{nil, models.ImplicationNeutral},
	}
	for _, c := range cases {
		result := &models.SimulationResult{}
		for i, class := range c.classes {
			result.Outcomes = append(result.Outcomes, outcome(string(rune('a'+i)), 0.5, false, class))
		}
		if got := Classify(result); got != c.want {
			t.Errorf("Classify(%v) = %v, want %v", c.classes, got, c.want)
		}
	}
}

// --- pipeline tests ---

func newTestSimulator(chains *fakeChainProvider, client *scriptedLLM) *Simulator {
	goals := &fakeGoalStore{goals: []*models.Goal{{
		Model: gorm.Model{ID: 1}, UserID: "user-1", Title: "Grow ADC market share", Priority: 4, Status: models.GoalStatusActive,
	}}}
	return NewSimulator(chains, goals, &fakeInsightStore{}, client, newTestLogger(), 1)
}

func TestSimulatePipeline(t *testing.T) {
	client := &scriptedLLM{
		variablesReply: `{"variables": ["timing", "pricing"]}`,
		variantsReply: `{"scenarios": [
			{"description": "deal closes fast", "probability": 0.6, "expected_outcome": "revenue lands early"},
			{"description": "deal stalls", "probability": 0.4, "expected_outcome": "pipeline slips"}
		]}`,
		evaluateReply: `{"classification": "positive", "positive_outcomes": ["revenue"], "negative_outcomes": [],
			"key_uncertainties": ["timing of the signature"], "recommended": true,
			"reasoning": "timing works in our favor", "time_to_impact": "2 weeks", "affected_goals": ["Grow ADC market share"]}`,
	}
	chains := &fakeChainProvider{chains: []*models.CausalChain{{
		TriggerEvent:    "deal closes fast",
		Hops:            []*models.CausalHop{{SourceEntity: "deal", TargetEntity: "revenue", Relationship: "enables", Confidence: 0.8}},
		FinalConfidence: 0.8,
	}}}
	s := newTestSimulator(chains, client)

	result, err := s.Simulate(context.Background(), "user-1", models.SimulationRequest{Scenario: "What if we cut the price by 10%?"})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if result.ScenarioType != scenarioTypeWhatIf {
		t.Errorf("ScenarioType = %q, want %q", result.ScenarioType, scenarioTypeWhatIf)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(result.Outcomes))
	}
	if result.RecommendedPath != "deal closes fast" {
		t.Errorf("RecommendedPath = %q, want the higher-probability recommended variant", result.RecommendedPath)
	}
	if result.Outcomes[0].CausalChain == nil {
		t.Error("outcome should carry the best causal chain as evidence")
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("Confidence = %v, want within [0,1]", result.Confidence)
	}
	if len(result.KeyInsights) == 0 || len(result.KeyInsights) > maxKeyInsights {
		t.Errorf("got %d key insights, want 1..%d", len(result.KeyInsights), maxKeyInsights)
	}
	if result.Sensitivity["timing"] != 1.0 {
		t.Errorf("Sensitivity[timing] = %v, want 1.0 (mentioned in every outcome)", result.Sensitivity["timing"])
	}
}

func TestSimulateFallsBackToBaseScenario(t *testing.T) {
	// Generation fails across the board: variables and variants fall back,
	// evaluation fails, so the single fallback variant is dropped.
	s := newTestSimulator(&fakeChainProvider{}, &scriptedLLM{err: errors.New("llm down")})

	result, err := s.Simulate(context.Background(), "user-1", models.SimulationRequest{Scenario: "What if the launch slips?"})
	if err != nil {
		t.Fatalf("Simulate() error = %v, want nil (fail-soft)", err)
	}
	if len(result.Outcomes) != 0 {
		t.Errorf("got %d outcomes, want 0", len(result.Outcomes))
	}
	if result.Confidence != noOutcomeConfidence {
		t.Errorf("Confidence = %v, want %v", result.Confidence, noOutcomeConfidence)
	}
	if len(result.KeyInsights) != 1 || result.KeyInsights[0] != noOutcomeInsight {
		t.Errorf("KeyInsights = %v, want the fixed inconclusive message", result.KeyInsights)
	}
	// Fallback variables still show up in the sensitivity map.
	for _, v := range defaultVariables {
		if _, ok := result.Sensitivity[v]; !ok {
			t.Errorf("Sensitivity missing fallback variable %q", v)
		}
	}
}

func TestQuickSimulate(t *testing.T) {
	client := &scriptedLLM{
		quickReply: `{"answer": "First paragraph.\n\nSecond paragraph.", "key_points": ["watch pricing", "watch timing"], "confidence": 0.7}`,
	}
	s := newTestSimulator(&fakeChainProvider{}, client)

	resp, err := s.QuickSimulate(context.Background(), "user-1", "What if we lose the Lonza deal?")
	if err != nil {
		t.Fatalf("QuickSimulate() error = %v", err)
	}
	if resp.Answer == "" || resp.Confidence != 0.7 || len(resp.KeyPoints) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestQuickSimulateFallsBackOnUnparseableOutput(t *testing.T) {
	client := &scriptedLLM{quickReply: "not json at all"}
	s := newTestSimulator(&fakeChainProvider{}, client)

	resp, err := s.QuickSimulate(context.Background(), "user-1", "What if we lose the Lonza deal?")
	if err != nil {
		t.Fatalf("QuickSimulate() error = %v, want nil (parse failure degrades)", err)
	}
	if resp.Answer != quickFallbackAnswer {
		t.Errorf("Answer = %q, want the fixed fallback answer", resp.Answer)
	}
	if resp.Confidence != quickFallbackConfidence {
		t.Errorf("Confidence = %v, want %v", resp.Confidence, quickFallbackConfidence)
	}
}
