// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/adaptive-trial/pkg/constants"
)

// SupportedOutputFormats lists every accepted output format.
var SupportedOutputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatMarkdown,
	constants.OutputFormatXLSX,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, supported := range SupportedOutputFormats {
		if format == supported {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %s",
		strings.Join(SupportedOutputFormats, ", "), format)
}

// ValidateOutputFile checks that binary formats are given a destination file.
func ValidateOutputFile(format, file string) error {
	if format == constants.OutputFormatXLSX && strings.TrimSpace(file) == "" {
		return fmt.Errorf("output format %s requires an output file", format)
	}
	return nil
}
