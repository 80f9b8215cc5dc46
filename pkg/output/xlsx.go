package output

import (
	"fmt"
	"io"

	"github.com/iwvelando/adaptive-trial/internal/trial"
	"github.com/iwvelando/adaptive-trial/pkg/constants"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

var xlsxHeader = []interface{}{
	"Scenario", "pControl", "trueRRR", "Zone", "P(zone)",
	"CP adaptive", "CP non-adaptive", "Avg N adaptive", "Avg N non-adaptive",
}

// XLSXFormat writes the report to an Excel workbook at path.
func XLSXFormat(report *trial.Report, path string) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// WriteXLSX streams the workbook to w.
func WriteXLSX(w io.Writer, report *trial.Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(report *trial.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := xlsxHeader
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	line := 2
	for _, result := range report.Results {
		for _, row := range Rows(result) {
			values := []interface{}{
				result.Scenario.Name,
				result.Scenario.PControl,
				result.Scenario.TrueRRR,
				row.Label,
				row.Probability,
				row.PowerAdaptive,
				row.PowerNonAdaptive,
				cellSampleSize(row.AvgSampleSizeAdaptive),
				cellSampleSize(row.AvgSampleSizeNonAdaptive),
			}
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to write row %d: %w", line, err)
			}
			line++
		}
	}
	return f, nil
}

func cellSampleSize(n *float64) interface{} {
	if n == nil {
		return constants.NotAvailable
	}
	return *n
}
