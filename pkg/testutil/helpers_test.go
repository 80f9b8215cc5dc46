package testutil

import (
	"testing"

	"github.com/iwvelando/adaptive-trial/internal/trial"
)

func TestFindResult(t *testing.T) {
	results := []trial.ScenarioResult{
		{Scenario: trial.Scenario{Name: "RRR 0.21", PControl: 0.051, TrueRRR: 0.21}, PowerAdaptive: 0.8},
		{Scenario: trial.Scenario{Name: "RRR 0.30", PControl: 0.051, TrueRRR: 0.30}, PowerAdaptive: 0.97},
		{Scenario: trial.Scenario{Name: "Null-ish", PControl: 0.051, TrueRRR: 0.01}, PowerAdaptive: 0.03},
	}

	tests := []struct {
		name        string
		searchName  string
		expectFound bool
		expectPower float64
	}{
		{"Find first scenario", "RRR 0.21", true, 0.8},
		{"Find second scenario", "RRR 0.30", true, 0.97},
		{"Find last scenario", "Null-ish", true, 0.03},
		{"Search for non-existent scenario", "RRR 0.50", false, 0},
		{"Empty search name", "", false, 0},
		{"Case sensitive search", "rrr 0.21", false, 0},
		{"Partial name match", "RRR", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindResult(results, tt.searchName)
			if !tt.expectFound {
				if result != nil {
					t.Errorf("FindResult(%q) = %+v, want nil", tt.searchName, result)
				}
				return
			}
			if result == nil {
				t.Fatalf("FindResult(%q) = nil, want a result", tt.searchName)
			}
			if result.PowerAdaptive != tt.expectPower {
				t.Errorf("FindResult(%q).PowerAdaptive = %v, want %v", tt.searchName, result.PowerAdaptive, tt.expectPower)
			}
		})
	}
}

func TestFindResultReturnsPointerIntoSlice(t *testing.T) {
	results := []trial.ScenarioResult{{Scenario: trial.Scenario{Name: "a"}}}
	FindResult(results, "a").EarlyStops = 7
	if results[0].EarlyStops != 7 {
		t.Error("expected FindResult to return a pointer into the slice")
	}
}

func TestFindResultEmpty(t *testing.T) {
	if FindResult(nil, "a") != nil {
		t.Error("expected nil for nil results")
	}
}

