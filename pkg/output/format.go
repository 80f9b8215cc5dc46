// Package output provides utilities for formatting and displaying simulation results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iwvelando/adaptive-trial/internal/trial"
	"github.com/iwvelando/adaptive-trial/pkg/format"
	"github.com/iwvelando/adaptive-trial/pkg/mathutil"
)

// OverallLabel labels the row that covers every replication.
const OverallLabel = "Overall"

// Row is one line of the operating-characteristics table.
type Row struct {
	Label                    string
	Probability              float64
	PowerAdaptive            float64
	PowerNonAdaptive         float64
	AvgSampleSizeAdaptive    *float64
	AvgSampleSizeNonAdaptive *float64
}

// Rows returns one row per zone followed by the overall row.
func Rows(result trial.ScenarioResult) []Row {
	rows := make([]Row, 0, len(result.Zones)+1)
	for _, zone := range result.Zones {
		rows = append(rows, Row{
			Label:                    zone.Zone.String(),
			Probability:              zone.Probability,
			PowerAdaptive:            zone.PowerAdaptive,
			PowerNonAdaptive:         zone.PowerNonAdaptive,
			AvgSampleSizeAdaptive:    zone.AvgSampleSizeAdaptive,
			AvgSampleSizeNonAdaptive: zone.AvgSampleSizeNonAdaptive,
		})
	}
	avgAdaptive := result.AvgSampleSizeAdaptive
	avgNonAdaptive := result.AvgSampleSizeNonAdaptive
	rows = append(rows, Row{
		Label:                    OverallLabel,
		Probability:              1,
		PowerAdaptive:            result.PowerAdaptive,
		PowerNonAdaptive:         result.PowerNonAdaptive,
		AvgSampleSizeAdaptive:    &avgAdaptive,
		AvgSampleSizeNonAdaptive: &avgNonAdaptive,
	})
	return rows
}

func scenarioTitle(result trial.ScenarioResult) string {
	s := result.Scenario
	return fmt.Sprintf("%s (pControl=%g, pExperimental=%.4f, trueRRR=%g)", s.Name, s.PControl, s.PExperimental(), s.TrueRRR)
}

// errWriter keeps the first write error so a table can be rendered with
// plain printf calls and checked once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(report *trial.Report) {
	_ = WritePretty(os.Stdout, report)
}

// WritePretty writes the human-readable table to w.
func WritePretty(w io.Writer, report *trial.Report) error {
	ew := &errWriter{w: w}
	for i, result := range report.Results {
		ew.printf("--- Results for scenario %s ---\n", scenarioTitle(result))
		ew.printf("%-12s | %-8s | %-11s | %-15s | %-14s | %-18s\n",
			"Zone", "P(zone)", "CP adaptive", "CP non-adaptive", "Avg N adaptive", "Avg N non-adaptive")
		ew.printf("%s\n", strings.Repeat("_", 92))
		for _, row := range Rows(result) {
			ew.printf("%-12s | %-8s | %-11s | %-15s | %-14s | %-18s\n",
				row.Label,
				format.Probability(row.Probability),
				format.Probability(row.PowerAdaptive),
				format.Probability(row.PowerNonAdaptive),
				format.OptionalSampleSize(row.AvgSampleSizeAdaptive),
				format.OptionalSampleSize(row.AvgSampleSizeNonAdaptive),
			)
		}
		ew.printf("Replications: %d | Early stops: %d (%.1f%%) | Power SE (adaptive): %.4f\n",
			result.Replications, result.EarlyStops,
			mathutil.CalculatePercentage(float64(result.EarlyStops), float64(result.Replications)),
			result.PowerAdaptiveSE)
		if i < len(report.Results)-1 {
			ew.printf("\n")
		}
	}
	return ew.err
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(report *trial.Report) {
	_ = WriteCSV(os.Stdout, report)
}

// CsvString returns the comma-separated value output as a string.
func CsvString(report *trial.Report) string {
	var b strings.Builder
	_ = WriteCSV(&b, report)
	return b.String()
}

// WriteCSV writes one line per scenario and zone, plus an overall line per scenario.
func WriteCSV(w io.Writer, report *trial.Report) error {
	ew := &errWriter{w: w}
	ew.printf(`"scenario","pControl","trueRRR","zone","probability","cpAdaptive","cpNonAdaptive","avgNAdaptive","avgNNonAdaptive"`)
	ew.printf("\n")
	for _, result := range report.Results {
		for _, row := range Rows(result) {
			ew.printf(`"%s","%g","%g","%s","%.4f","%.4f","%.4f","%s","%s"`,
				strings.ReplaceAll(result.Scenario.Name, `"`, `""`),
				result.Scenario.PControl,
				result.Scenario.TrueRRR,
				row.Label,
				row.Probability,
				row.PowerAdaptive,
				row.PowerNonAdaptive,
				format.PlainSampleSize(row.AvgSampleSizeAdaptive),
				format.PlainSampleSize(row.AvgSampleSizeNonAdaptive),
			)
			ew.printf("\n")
		}
	}
	return ew.err
}

// WriteJSON writes the full report as indented JSON.
func WriteJSON(w io.Writer, report *trial.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// MarkdownString renders the report as markdown tables, one per scenario.
func MarkdownString(report *trial.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Adaptive design operating characteristics\n\n")
	fmt.Fprintf(&b, "Run `%s`, seed %d, %d replications per scenario.\n\n", report.RunID, report.Seed, report.Replications)
	for _, result := range report.Results {
		fmt.Fprintf(&b, "## %s\n\n", scenarioTitle(result))
		fmt.Fprintf(&b, "| Zone | P(zone) | CP adaptive | CP non-adaptive | Avg N adaptive | Avg N non-adaptive |\n")
		fmt.Fprintf(&b, "|---|---:|---:|---:|---:|---:|\n")
		for _, row := range Rows(result) {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				row.Label,
				format.Probability(row.Probability),
				format.Probability(row.PowerAdaptive),
				format.Probability(row.PowerNonAdaptive),
				format.OptionalSampleSize(row.AvgSampleSizeAdaptive),
				format.OptionalSampleSize(row.AvgSampleSizeNonAdaptive),
			)
		}
		fmt.Fprintf(&b, "\nEarly stops: %d. Standard error of adaptive power: %.4f.\n\n", result.EarlyStops, result.PowerAdaptiveSE)
	}
	return b.String()
}
