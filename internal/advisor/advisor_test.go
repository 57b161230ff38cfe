package advisor

import (
	"strings"
	"testing"
)

func TestSuggestByStrategy(t *testing.T) {
	a := New()

	tests := []struct {
		question string
		want     string
	}{
		{"Should I use grid trading for BTC?", "Grid trading"},
		{"is mean reversion good right now", "Mean reversion"},
		{"thoughts on a trend following bot", "Trend following"},
		{"how do I tune my scalper", "Scalping"},
	}
	for _, tt := range tests {
		got := a.Suggest(tt.question)
		if !strings.Contains(got, tt.want) {
			t.Errorf("Suggest(%q) = %q, want mention of %q", tt.question, got, tt.want)
		}
	}
}

func TestSuggestRisk(t *testing.T) {
	a := New()
	got := a.Suggest("how much risk should I take per trade?")
	if !strings.Contains(got, "stop-loss") {
		t.Errorf("Suggest(risk question) = %q, want risk guidance", got)
	}
}

func TestSuggestFallback(t *testing.T) {
	a := New()
	got := a.Suggest("what's for lunch")
	if !strings.Contains(got, "Backtest") {
		t.Errorf("Suggest(unrelated question) = %q, want general advice", got)
	}
}
