// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/adaptive-trial/internal/trial"
)

// FindResult finds a scenario result by scenario name.
// Returns nil when no scenario has that name.
func FindResult(results []trial.ScenarioResult, name string) *trial.ScenarioResult {
	for i := range results {
		if results[i].Scenario.Name == name {
			return &results[i]
		}
	}
	return nil
}

