package integration

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/adaptive-trial/internal/config"
	"github.com/iwvelando/adaptive-trial/internal/trial"
	"github.com/iwvelando/adaptive-trial/pkg/output"
	"github.com/iwvelando/adaptive-trial/pkg/testutil"
	"go.uber.org/zap"
)

const testConfigPath = "../test_config.yaml"

// runConfig loads, validates and simulates a configuration exactly as main() does.
func runConfig(t *testing.T, path string) *trial.Report {
	t.Helper()

	conf, err := config.LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if err := conf.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	runner := trial.NewRunner(zap.NewNop(), trial.Options{
		Seed:    conf.Simulation.Seed,
		Workers: conf.Simulation.Workers,
	})
	report, err := runner.Run(context.Background(), conf.TrialDesign(), conf.ActiveScenarios(), conf.Simulation.Replications)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return report
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestMainIntegration runs the test configuration end to end and checks the
// structural properties every report must satisfy.
func TestMainIntegration(t *testing.T) {
	report := runConfig(t, testConfigPath)

	expectedScenarios := []string{"RRR 0.21", "RRR 0.30"}
	if len(report.Results) != len(expectedScenarios) {
		t.Fatalf("Expected %d scenarios, got %d", len(expectedScenarios), len(report.Results))
	}
	for i, expected := range expectedScenarios {
		if report.Results[i].Scenario.Name != expected {
			t.Errorf("Expected scenario %s, got %s", expected, report.Results[i].Scenario.Name)
		}
	}
	if testutil.FindResult(report.Results, "Inactive") != nil {
		t.Error("Inactive scenario should not be simulated")
	}

	for _, result := range report.Results {
		if result.Replications != 500 {
			t.Errorf("%s: expected 500 replications, got %d", result.Scenario.Name, result.Replications)
		}
		if total := result.ZoneProbabilityTotal(); math.Abs(total-1) > 1e-9 {
			t.Errorf("%s: zone probabilities sum to %v", result.Scenario.Name, total)
		}
		if result.AvgSampleSizeAdaptive > 20000 {
			t.Errorf("%s: average adaptive sample size %v exceeds nMaxCap", result.Scenario.Name, result.AvgSampleSizeAdaptive)
		}
		if result.AvgSampleSizeNonAdaptive != 10900 {
			t.Errorf("%s: non-adaptive sample size should be nInitial, got %v", result.Scenario.Name, result.AvgSampleSizeNonAdaptive)
		}
	}

	weak := testutil.FindResult(report.Results, "RRR 0.21")
	strong := testutil.FindResult(report.Results, "RRR 0.30")
	if weak == nil || strong == nil {
		t.Fatal("expected both scenarios in results")
	}
	if strong.PowerAdaptive <= weak.PowerAdaptive {
		t.Errorf("expected larger effect to have higher power: %v <= %v", strong.PowerAdaptive, weak.PowerAdaptive)
	}
}

// TestPrettyOutputFormat tests the human-readable output
func TestPrettyOutputFormat(t *testing.T) {
	report := runConfig(t, testConfigPath)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	output.PrettyFormat(report)

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	out := buf.String()

	for _, expected := range []string{
		"--- Results for scenario RRR 0.21",
		"--- Results for scenario RRR 0.30",
		"Unfavorable",
		"Promising",
		"Favorable",
		"Overall",
		"Replications: 500",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected output to contain %q", expected)
		}
	}
}

// TestCsvFormat tests the comma-separated output shape
func TestCsvFormat(t *testing.T) {
	report := runConfig(t, testConfigPath)

	lines := strings.Split(strings.TrimSpace(output.CsvString(report)), "\n")
	// Header plus three zones and one overall row per scenario
	if len(lines) != 1+2*4 {
		t.Fatalf("Expected 9 CSV lines, got %d", len(lines))
	}
	for i, line := range lines {
		if fields := strings.Count(line, ","); fields != 8 {
			t.Errorf("line %d: expected 9 fields, got %d: %s", i, fields+1, line)
		}
	}
}

// TestConfigurationValidation checks that invalid configurations never reach the simulator
func TestConfigurationValidation(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{
			name: "Inverted promising zone",
			config: `
design:
  promisingZone:
    lower: 0.3
    upper: 0.1
scenarios:
  - name: a
    active: true
    pControl: 0.05
    trueRRR: 0.2
`,
		},
		{
			name: "Odd initial sample size",
			config: `
design:
  nInitial: 10901
scenarios:
  - name: a
    active: true
    pControl: 0.05
    trueRRR: 0.2
`,
		},
		{
			name: "Cap below initial sample size",
			config: `
design:
  nMaxCap: 5000
scenarios:
  - name: a
    active: true
    pControl: 0.05
    trueRRR: 0.2
`,
		},
		{
			name: "Control probability out of range",
			config: `
scenarios:
  - name: a
    active: true
    pControl: 1.2
    trueRRR: 0.2
`,
		},
		{
			name: "No active scenarios",
			config: `
scenarios:
  - name: a
    active: false
    pControl: 0.05
    trueRRR: 0.2
`,
		},
		{
			name: "Zero replications",
			config: `
simulation:
  replications: 0
scenarios:
  - name: a
    active: true
    pControl: 0.05
    trueRRR: 0.2
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := config.LoadConfiguration(writeConfig(t, tt.config))
			if err != nil {
				t.Fatalf("LoadConfiguration() error = %v", err)
			}
			if err := conf.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// TestEndToEndWithSweep runs a grid of scenarios built from a sweep block
func TestEndToEndWithSweep(t *testing.T) {
	path := writeConfig(t, `
simulation:
  replications: 200
  seed: 7
  workers: 3
scenarios:
  - name: explicit
    active: true
    pControl: 0.051
    trueRRR: 0.21
sweep:
  pControl: [0.04, 0.06]
  trueRRR: [0.15, 0.25]
`)
	report := runConfig(t, path)

	if len(report.Results) != 5 {
		t.Fatalf("Expected 5 scenarios, got %d", len(report.Results))
	}
	for _, name := range []string{"explicit", "pControl=0.04 trueRRR=0.15", "pControl=0.06 trueRRR=0.25"} {
		if testutil.FindResult(report.Results, name) == nil {
			t.Errorf("Scenario %q not found", name)
		}
	}
	for _, result := range report.Results {
		if result.EarlyStops > result.Replications {
			t.Errorf("%s: early stops %d exceed replications", result.Scenario.Name, result.EarlyStops)
		}
		favorable, ok := result.ForZone(trial.ZoneFavorable)
		if !ok {
			t.Fatalf("%s: favorable zone missing", result.Scenario.Name)
		}
		if result.EarlyStops > favorable.Count {
			t.Errorf("%s: early stops %d exceed favorable count %d", result.Scenario.Name, result.EarlyStops, favorable.Count)
		}
	}
}
