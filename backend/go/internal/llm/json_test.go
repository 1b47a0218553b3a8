package llm

import "testing"

func TestDecodeJSONPlain(t *testing.T) {
	var v struct {
		Answer string `json:"answer"`
	}
	if err := DecodeJSON(`{"answer": "yes"}`, &v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if v.Answer != "yes" {
		t.Errorf("Answer = %q, want %q", v.Answer, "yes")
	}
}

func TestDecodeJSONStripsMarkdownFences(t *testing.T) {
	text := "```json\n{\"answer\": \"yes\"}\n```"
	var v struct {
		Answer string `json:"answer"`
	}
	if err := DecodeJSON(text, &v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if v.Answer != "yes" {
		t.Errorf("Answer = %q, want %q", v.Answer, "yes")
	}
}

func TestDecodeJSONExtractsFromProse(t *testing.T) {
	text := `Sure! Here is the result you asked for:
{"variables": ["timing", "pricing"]}
Let me know if you need anything else.`
	var v struct {
		Variables []string `json:"variables"`
	}
	if err := DecodeJSON(text, &v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if len(v.Variables) != 2 || v.Variables[0] != "timing" {
		t.Errorf("Variables = %v, want [timing pricing]", v.Variables)
	}
}

func TestDecodeJSONArray(t *testing.T) {
	var v []int
	if err := DecodeJSON("the counts are [1, 2, 3] as requested", &v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if len(v) != 3 || v[2] != 3 {
		t.Errorf("got %v, want [1 2 3]", v)
	}
}

func TestDecodeJSONNoPayload(t *testing.T) {
	var v struct{}
	if err := DecodeJSON("I cannot answer that.", &v); err == nil {
		t.Error("DecodeJSON() = nil, want error for output without JSON")
	}
}

func TestDecodeJSONUnterminated(t *testing.T) {
	var v struct{}
	if err := DecodeJSON(`{"answer": "yes"`, &v); err == nil {
		t.Error("DecodeJSON() = nil, want error for truncated JSON")
	}
}
