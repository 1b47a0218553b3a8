package horizon

import (
	"context"
	"errors"
	"testing"

	"Minerva/backend/go/internal/models"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.GenerateContentResponse{Text: f.reply}, nil
}

func TestCategorizeEmptyInput(t *testing.T) {
	c := NewLLMCategorizer(&fakeLLM{err: errors.New("must not be called")})
	assignments, err := c.Categorize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("got %d assignments, want 0", len(assignments))
	}
}

func TestCategorizeRoundTripsCorrelationIDs(t *testing.T) {
	reply := `{"assignments": [
		{"id": "id-1", "horizon": "short_term", "time_to_impact": "2 weeks"},
		{"id": "id-2", "horizon": "long_term"}
	]}`
	c := NewLLMCategorizer(&fakeLLM{reply: reply})

	items := []Item{
		{CorrelationID: "id-1", Content: "first insight"},
		{CorrelationID: "id-2", Content: "second insight"},
	}
	assignments, err := c.Categorize(context.Background(), items)
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}

	if a, ok := assignments["id-1"]; !ok || a.Horizon != ShortTerm || a.TimeToImpact != "2 weeks" {
		t.Errorf("assignments[id-1] = %+v, want short_term / 2 weeks", a)
	}
	if a, ok := assignments["id-2"]; !ok || a.Horizon != LongTerm {
		t.Errorf("assignments[id-2] = %+v, want long_term", a)
	}
}

func TestCategorizeDropsUnknownBuckets(t *testing.T) {
	reply := `{"assignments": [{"id": "id-1", "horizon": "someday"}]}`
	c := NewLLMCategorizer(&fakeLLM{reply: reply})

	assignments, err := c.Categorize(context.Background(), []Item{{CorrelationID: "id-1"}})
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if _, ok := assignments["id-1"]; ok {
		t.Error("out-of-enum horizon must be dropped, not passed through")
	}
}

func TestCategorizePropagatesGenerationFailure(t *testing.T) {
	c := NewLLMCategorizer(&fakeLLM{err: errors.New("llm down")})
	if _, err := c.Categorize(context.Background(), []Item{{CorrelationID: "id-1"}}); err == nil {
		t.Error("Categorize() = nil, want error (caller decides how to degrade)")
	}
}
