package analyzer

import "testing"

func TestUrgencyFromHint(t *testing.T) {
	cases := []struct {
		hint string
		want float64
	}{
		{"", 0.5},
		{"immediate action required", 0.9},
		{"this is urgent", 0.9},
		{"act now", 0.9},
		{"critical window", 0.9},
		{"2 days", 0.8},
		{"3 days", 0.8},
		{"5 days", 0.6},
		{"7 days", 0.6},
		{"10 days", 0.4},
		{"14 days", 0.4},
		{"30 days", 0.3},
		{"1 week", 0.7},
		{"2 weeks", 0.5},
		{"3 weeks", 0.3},
		{"4 weeks", 0.3},
		{"8 weeks", 0.2},
		{"1 month", 0.4},
		{"2 months", 0.3},
		{"3 months", 0.3},
		{"6 months", 0.2},
		{"soon", 0.7},
		{"in the near term", 0.7},
		{"long term", 0.2},
		{"eventually", 0.2},
		{"sometime", 0.5}, // unknown text falls back to the default
	}

	for _, c := range cases {
		if got := urgencyFromHint(c.hint); got != c.want {
			t.Errorf("urgencyFromHint(%q) = %v, want %v", c.hint, got, c.want)
		}
	}
}

func TestUrgencyFromHintIsIdempotent(t *testing.T) {
	for _, hint := range []string{"", "2 days", "1 month", "whenever"} {
		first := urgencyFromHint(hint)
		second := urgencyFromHint(hint)
		if first != second {
			t.Errorf("urgencyFromHint(%q) not stable: %v then %v", hint, first, second)
		}
	}
}
