// Package configprocessor provides shared configuration processing utilities.
package configprocessor

import (
	"fmt"
	"math"

	"github.com/iwvelando/adaptive-trial/pkg/constants"
)

// DesignInfo represents the design fields that warnings are derived from
type DesignInfo struct {
	NInitial        int
	InterimFraction float64
	ZAlphaInterim   float64
	ZAlphaFinal     float64
}

// ScenarioInfo represents scenario configuration information
type ScenarioInfo struct {
	Name   string
	Active bool
}

// Processor handles configuration processing and validation
type Processor struct{}

// NewProcessor creates a new configuration processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration inspects a configuration that already passed hard
// validation and returns warnings about settings that are legal but likely
// unintended.
func (p *Processor) ValidateConfiguration(design DesignInfo, replications int, scenarios []ScenarioInfo) []string {
	var warnings []string

	if replications > 0 && replications < constants.LowReplicationWarning {
		warnings = append(warnings, fmt.Sprintf("Only %d replications per scenario - Monte Carlo error on power is roughly ±%.3f",
			replications, 2*math.Sqrt(0.25/float64(replications))))
	}

	interim := float64(design.NInitial) * design.InterimFraction
	if math.Abs(interim-math.Round(interim)) > 1e-9 {
		warnings = append(warnings, fmt.Sprintf("Interim enrollment %.2f is not a whole number and will be rounded to %.0f",
			interim, math.Round(interim)))
	}

	if design.ZAlphaInterim < design.ZAlphaFinal {
		warnings = append(warnings, fmt.Sprintf("Interim efficacy boundary %.3f is below the final critical value %.3f",
			design.ZAlphaInterim, design.ZAlphaFinal))
	}

	seen := make(map[string]bool)
	inactive := 0
	for _, scenario := range scenarios {
		if !scenario.Active {
			inactive++
			continue
		}
		if seen[scenario.Name] {
			warnings = append(warnings, fmt.Sprintf("Scenario name '%s' is used more than once", scenario.Name))
		}
		seen[scenario.Name] = true
	}
	if inactive > 0 {
		warnings = append(warnings, fmt.Sprintf("Skipping %d inactive scenario(s)", inactive))
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}
